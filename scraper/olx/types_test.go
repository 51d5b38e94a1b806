package olx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Result {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp.result()
}

func TestResultSuccess(t *testing.T) {
	res := decode(t, `{"data":{"clientCompatibleListings":{
		"__typename":"ListingSuccess",
		"data":[{"id":"abc","title":"Chair","params":[
			{"key":"price","value":{"__typename":"PriceParam","value":1499.99,"currency":"EUR"}}
		],"location":{"city":{"name":"Iasi"},"region":{"name":"Iasi"}}}],
		"metadata":{"total_elements":1}}}}`)

	s, ok := res.(*Success)
	require.True(t, ok)
	assert.Equal(t, 1, s.Total)
	require.Len(t, s.Items, 1)

	price, currency, ok := s.Items[0].Price()
	assert.True(t, ok)
	assert.Equal(t, 1499, price)
	assert.Equal(t, "EUR", currency)
	assert.Equal(t, flexString("abc"), s.Items[0].ID)
}

func TestResultListingError(t *testing.T) {
	res := decode(t, `{"data":{"clientCompatibleListings":{
		"__typename":"ListingError","error":{"code":400,"detail":"invalid offset"}}}}`)

	f, ok := res.(*Failure)
	require.True(t, ok)
	assert.Equal(t, "400", f.Code)
	assert.Equal(t, "invalid offset", f.Detail)
	assert.Contains(t, f.Error(), "invalid offset")
}

func TestResultGraphQLErrors(t *testing.T) {
	res := decode(t, `{"data":null,"errors":[{"message":"rate limited upstream"}]}`)

	f, ok := res.(*Failure)
	require.True(t, ok)
	assert.Equal(t, "graphql", f.Code)
	assert.Equal(t, "rate limited upstream", f.Detail)
}

func TestResultUnknownTypename(t *testing.T) {
	res := decode(t, `{"data":{"clientCompatibleListings":{"__typename":"SomethingNew"}}}`)
	_, ok := res.(*Failure)
	assert.True(t, ok)
}

func TestItemPrice(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   int
		ok     bool
	}{
		{"no params", `[]`, 0, false},
		{"price key wrong type", `[{"key":"price","value":{"__typename":"GenericParam"}}]`, 0, false},
		{"price typed under other key", `[{"key":"old_price","value":{"__typename":"PriceParam","value":5}}]`, 0, false},
		{"null value", `[{"key":"price","value":{"__typename":"PriceParam","value":null}}]`, 0, false},
		{"null payload", `[{"key":"price","value":null}]`, 0, false},
		{"truncates", `[{"key":"price","value":{"__typename":"PriceParam","value":10.9,"currency":"RON"}}]`, 10, true},
		{"numeric string", `[{"key":"price","value":{"__typename":"PriceParam","value":" 2500.5 ","currency":"RON"}}]`, 2500, true},
		{"text value", `[{"key":"price","value":{"__typename":"PriceParam","value":"negotiable"}}]`, 0, false},
		{"object value", `[{"key":"price","value":{"__typename":"PriceParam","value":{"amount":5}}}]`, 0, false},
		{"NaN string", `[{"key":"price","value":{"__typename":"PriceParam","value":"NaN"}}]`, 0, false},
		{"bad currency", `[{"key":"price","value":{"__typename":"PriceParam","value":5,"currency":7}}]`, 0, false},
		{"skips unreadable price", `[{"key":"price","value":{"__typename":"PriceParam","value":"n/a"}},{"key":"price","value":{"__typename":"PriceParam","value":9}}]`, 9, true},
		{"first match wins", `[{"key":"price","value":{"__typename":"PriceParam","value":7}},{"key":"price","value":{"__typename":"PriceParam","value":8}}]`, 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var it Item
			require.NoError(t, json.Unmarshal([]byte(`{"id":1,"params":`+tt.params+`}`), &it))
			got, _, ok := it.Price()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlexString(t *testing.T) {
	var ids []flexString
	require.NoError(t, json.Unmarshal([]byte(`[123456789, "x-1", null]`), &ids))
	assert.Equal(t, []flexString{"123456789", "x-1", ""}, ids)
}

func TestResultSuccessDropsUndecodableItems(t *testing.T) {
	var resp response
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"clientCompatibleListings":{
		"__typename":"ListingSuccess",
		"data":[
			{"id":1,"title":"ok","params":[{"key":"price","value":{"__typename":"PriceParam","value":100}}]},
			{"id":{"nested":true},"title":"bad id"},
			{"id":3,"title":["not","a","string"]}
		],
		"metadata":{"total_elements":3}}}}`), &resp))

	s, ok := resp.result().(*Success)
	require.True(t, ok)
	assert.Equal(t, 3, s.Total)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "ok", s.Items[0].Title)
}
