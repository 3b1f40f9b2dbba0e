package models

import "time"

// SortOrder is the direction of a question sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sortable question fields
const (
	SortTitle          = "title"
	SortFrequency      = "frequency"
	SortAcceptanceRate = "acceptanceRate"
	SortLeetDifficulty = "leetDifficulty"
)

// QuestionQuery selects a page of a (company, bucket) view for one user
type QuestionQuery struct {
	UserID       string
	Company      string
	Bucket       string
	Page         int
	Limit        int
	SortField    string
	SortOrder    SortOrder
	Search       string
	Tag          string
	ShowUnsolved bool
}

// QuestionItem is one row of a question page
type QuestionItem struct {
	ID             QuestionID `json:"id"`
	Title          string     `json:"title"`
	Link           string     `json:"link"`
	Slug           string     `json:"slug"`
	LeetDifficulty Difficulty `json:"leetDifficulty"`
	Tags           []string   `json:"tags"`
	Frequency      float64    `json:"frequency"`
	AcceptanceRate float64    `json:"acceptanceRate"`
	Bucket         string     `json:"bucket"`
	Solved         bool       `json:"solved"`
	UserDifficulty Difficulty `json:"userDifficulty"`
}

// QuestionPage is a page of questions. Total counts the filtered set before
// pagination and before the unsolved-only filter.
type QuestionPage struct {
	Items []QuestionItem `json:"items"`
	Total int            `json:"total"`
}

// TopicCount is the number of questions carrying a tag
type TopicCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// BucketProgress summarizes one bucket of a company for a user
type BucketProgress struct {
	Bucket string `json:"bucket"`
	Total  int    `json:"total"`
	Solved int    `json:"solved"`
}

// DifficultyBreakdown counts solved questions per difficulty
type DifficultyBreakdown struct {
	Easy   int `json:"Easy"`
	Medium int `json:"Medium"`
	Hard   int `json:"Hard"`
}

// CompanySummary is a company's "All" bucket progress for a user
type CompanySummary struct {
	Company string `json:"company"`
	Total   int    `json:"total"`
	Solved  int    `json:"solved"`
}

// UserStats is the global statistics view for one user
type UserStats struct {
	TotalAttempted int                 `json:"totalAttempted"`
	TotalSolved    int                 `json:"totalSolved"`
	TotalQuestions int                 `json:"totalQuestions"`
	Difficulty     DifficultyBreakdown `json:"difficulty"`
	Companies      []CompanySummary    `json:"companies"`
	GeneratedAt    time.Time           `json:"generatedAt"`
}
