package olx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the top-level outcome of one search page: either *Success or *Failure.
type Result interface {
	isResult()
}

// Success is a page of listings plus the total size of the result set.
type Success struct {
	Items []Item
	Total int
}

// Failure is an error variant reported by the API in place of data.
type Failure struct {
	Code   string
	Detail string
}

func (*Success) isResult() {}
func (*Failure) isResult() {}

func (f *Failure) Error() string {
	return fmt.Sprintf("olx api error %s: %s", f.Code, f.Detail)
}

// Item is one raw search result.
type Item struct {
	ID       flexString `json:"id"`
	Title    string     `json:"title"`
	Params   []Param    `json:"params"`
	Location struct {
		City   namedRef `json:"city"`
		Region namedRef `json:"region"`
	} `json:"location"`
}

type namedRef struct {
	Name string `json:"name"`
}

// Param is one entry of an item's parameter list.
type Param struct {
	Key   string     `json:"key"`
	Value ParamValue `json:"value"`
}

// ParamValue is a typed parameter payload. Price is set only for PriceParam.
type ParamValue struct {
	Typename string
	Price    *PriceValue
}

// PriceValue is the payload of a PriceParam. Value is kept raw because the
// gateway does not always send a number; see Item.Price.
type PriceValue struct {
	Value    json.RawMessage `json:"value"`
	Currency string          `json:"currency"`
}

// UnmarshalJSON never fails on a malformed payload. Such a parameter decodes
// with a nil Price so only its item is dropped.
func (v *ParamValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil
	}
	v.Typename = head.Typename
	if head.Typename != "PriceParam" {
		return nil
	}
	var pv PriceValue
	if err := json.Unmarshal(data, &pv); err != nil {
		return nil
	}
	v.Price = &pv
	return nil
}

// Price returns the integer price and currency of the item, if it has one.
// Numbers and numeric strings are accepted; the value is truncated toward
// zero. A price key whose value cannot be read is skipped.
func (it Item) Price() (int, string, bool) {
	for _, p := range it.Params {
		if p.Key != "price" || p.Value.Price == nil {
			continue
		}
		f, ok := parsePrice(p.Value.Price.Value)
		if !ok {
			continue
		}
		return int(f), p.Value.Price.Currency, true
	}
	return 0, "", false
}

func parsePrice(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var f float64
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
		f = v
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// response is the GraphQL envelope.
type response struct {
	Data struct {
		Listings resultEnvelope `json:"clientCompatibleListings"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// result resolves the envelope into a Result. A missing payload is a Failure.
func (r *response) result() Result {
	if r.Data.Listings.Result != nil {
		return r.Data.Listings.Result
	}
	if len(r.Errors) > 0 {
		return &Failure{Code: "graphql", Detail: r.Errors[0].Message}
	}
	return &Failure{Code: "empty", Detail: "response carried no listings payload"}
}

type resultEnvelope struct {
	Result Result
}

func (e *resultEnvelope) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Typename {
	case "ListingSuccess":
		var s struct {
			Data     []json.RawMessage `json:"data"`
			Metadata struct {
				TotalElements int `json:"total_elements"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.Result = &Success{Items: decodeItems(s.Data), Total: s.Metadata.TotalElements}
	case "ListingError":
		var f struct {
			Error struct {
				Code   json.RawMessage `json:"code"`
				Detail string          `json:"detail"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		e.Result = &Failure{Code: rawCode(f.Error.Code), Detail: f.Error.Detail}
	default:
		e.Result = &Failure{Code: "unknown_type", Detail: strconv.Quote(head.Typename)}
	}
	return nil
}

// decodeItems drops items that do not decode instead of failing the page.
func decodeItems(raw []json.RawMessage) []Item {
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		var it Item
		if err := json.Unmarshal(r, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items
}

// rawCode renders an error code that may be a string or a number.
func rawCode(raw json.RawMessage) string {
	var s flexString
	if err := s.UnmarshalJSON(raw); err != nil {
		return string(raw)
	}
	return string(s)
}
