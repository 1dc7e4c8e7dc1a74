package mcp

// Tool names.
const (
	ToolMatchAddress     = "match_address"
	ToolMatchStreet      = "match_street"
	ToolNormalizeAddress = "normalize_address"
)

// MaxKeep caps the keep argument of match_address.
const MaxKeep = 100

// MatchAddressInput defines the input schema for the match_address tool.
type MatchAddressInput struct {
	Query       string   `json:"query" jsonschema:"the address to look up"`
	Candidates  []string `json:"candidates,omitempty" jsonschema:"candidate addresses to rank, mutually exclusive with dir"`
	Dir         string   `json:"dir,omitempty" jsonschema:"directory of candidate files with one address per line, relative to the server root"`
	Sensitivity *float64 `json:"sensitivity,omitempty" jsonschema:"minimum score between 0 and 1, defaults to the configured value"`
	Keep        *int     `json:"keep,omitempty" jsonschema:"maximum number of matches, defaults to the configured value"`
}

// MatchAddressOutput defines the output schema for the match_address tool.
type MatchAddressOutput struct {
	Query   string        `json:"query" jsonschema:"the query as received"`
	Matches []MatchOutput `json:"matches" jsonschema:"matches ordered by descending score"`
}

// MatchOutput is one ranked candidate.
type MatchOutput struct {
	Text   string  `json:"text" jsonschema:"the candidate as written in its source"`
	Score  float64 `json:"score" jsonschema:"similarity between 0 and 1"`
	Source string  `json:"source,omitempty" jsonschema:"file the candidate came from"`
}

// MatchStreetInput defines the input schema for the match_street tool.
type MatchStreetInput struct {
	Street   string `json:"street" jsonschema:"street with house number, e.g. 'ch de saint-cierges 3'"`
	Postcode string `json:"postcode,omitempty" jsonschema:"Swiss postcode to search first"`
	Place    string `json:"place,omitempty" jsonschema:"place name to search first, used when postcode is empty"`
}

// MatchStreetOutput defines the output schema for the match_street tool.
type MatchStreetOutput struct {
	Query  string  `json:"query" jsonschema:"the street as received"`
	Found  bool    `json:"found" jsonschema:"whether any street matched"`
	Street string  `json:"street,omitempty" jsonschema:"the official street text"`
	Score  float64 `json:"score,omitempty" jsonschema:"similarity between 0 and 1"`
	Source string  `json:"source,omitempty" jsonschema:"the requested location's file, set only when the match came from it"`
}

// NormalizeAddressInput defines the input schema for the normalize_address tool.
type NormalizeAddressInput struct {
	Text string `json:"text" jsonschema:"address text to normalize"`
}

// NormalizeAddressOutput defines the output schema for the normalize_address tool.
type NormalizeAddressOutput struct {
	Canonical string `json:"canonical" jsonschema:"normalized form with abbreviations expanded"`
	Surface   string `json:"surface" jsonschema:"normalized form without abbreviation expansion"`
}
