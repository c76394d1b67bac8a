package models

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// CursorMeta describes a forward page of a message thread.
type CursorMeta struct {
	AfterSeq int64 `json:"after_seq"`
	Limit    int   `json:"limit"`
	NextSeq  int64 `json:"next_seq"`
	HasMore  bool  `json:"has_more"`
}
