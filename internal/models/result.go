package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type EvaluateRequest struct {
	JobTitle string `json:"job_title" validate:"required"`
	CVID     string `json:"cv_id" validate:"required,uuid"`
	ReportID string `json:"report_id" validate:"required,uuid"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Result       *FinalResult `json:"result,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

type IngestRequest struct {
	DocID   string `json:"doc_id" validate:"required"`
	DocType string `json:"doc_type" validate:"required"`
	Content string `json:"content" validate:"required"`
}
