package dto

type AuditReportRequest struct {
	ID      uint64 `json:"id"`
	Audited bool   `json:"audited"`
}

type DeleteReportRequest struct {
	ID uint64 `json:"id"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type InfoResponse struct {
	DBDriver       string `json:"db_driver"`
	StorageBackend string `json:"storage_backend"`
	ReportCount    int64  `json:"report_count"`
	PendingCount   int64  `json:"pending_count"`
}
