package dto

// Res is the error envelope returned by handlers and middleware.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	Stage           string `json:"stage,omitempty"`
	Attempts        int    `json:"attempts,omitempty"`
	Retryable       bool   `json:"retryable"`
	Details         any    `json:"details,omitempty"`
}
