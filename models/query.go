package models

// QueryRequest is the body of POST /query/.
type QueryRequest struct {
	Query       string `json:"query" binding:"required"`
	CompanyName string `json:"company_name,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	ProductName string `json:"product_name,omitempty"`
}

// QueryResponse carries the generated answer.
type QueryResponse struct {
	Response string `json:"response"`
}
