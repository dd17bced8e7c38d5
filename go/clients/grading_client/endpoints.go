package grading_client

const (
	SubmitPath = "/api/problem/submit/study"

	JsonHeader      = "Content-Type"
	JsonContentType = "application/json"
)
