package olx

// searchQuery requests only the fields needed for price statistics.
const searchQuery = `
query ListingSearchQuery($searchParameters: [SearchParameter!]) {
  clientCompatibleListings(searchParameters: $searchParameters) {
    __typename
    ... on ListingSuccess {
      data {
        id
        title
        params {
          key
          value {
            __typename
            ... on PriceParam {
              value
              currency
            }
          }
        }
        location {
          city { name }
          region { name }
        }
      }
      metadata {
        total_elements
      }
    }
    ... on ListingError {
      error { code detail }
    }
  }
}
`

type searchParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables struct {
		SearchParameters []searchParameter `json:"searchParameters"`
	} `json:"variables"`
}
