package graphqlerrors

// Response is the GraphQL response object.
type Response struct {
	Errors Errors `json:"errors,omitempty"`
	// data: null is included when errors happen before execution
	// https://spec.graphql.org/draft/#sec-Data
	Data any `json:"data"`
}

func (r Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
