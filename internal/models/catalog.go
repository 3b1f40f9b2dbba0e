package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Well-known buckets in display order.
const (
	Bucket30Days          = "30Days"
	Bucket3Months         = "3Months"
	Bucket6Months         = "6Months"
	BucketMoreThan6Months = "MoreThan6Months"
	BucketAll             = "All"
)

// Buckets lists the well-known buckets in display order
var Buckets = []string{Bucket30Days, Bucket3Months, Bucket6Months, BucketMoreThan6Months, BucketAll}

// BucketRank returns the display position of a bucket; unknown buckets sort last
func BucketRank(bucket string) int {
	for i, b := range Buckets {
		if b == bucket {
			return i
		}
	}
	return len(Buckets)
}

// QuestionID identifies a canonical question
type QuestionID uuid.UUID

// NewQuestionID generates a random QuestionID
func NewQuestionID() QuestionID {
	return QuestionID(uuid.New())
}

// ParseQuestionID decodes the string form of a QuestionID
func ParseQuestionID(s string) (QuestionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return QuestionID{}, NewValidationError("questionId", "malformed question id %q", s)
	}
	return QuestionID(id), nil
}

func (id QuestionID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is unset
func (id QuestionID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id QuestionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *QuestionID) UnmarshalText(b []byte) error {
	parsed, err := ParseQuestionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CompanyID identifies a company
type CompanyID uuid.UUID

// NewCompanyID generates a random CompanyID
func NewCompanyID() CompanyID {
	return CompanyID(uuid.New())
}

// ParseCompanyID decodes the string form of a CompanyID
func ParseCompanyID(s string) (CompanyID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CompanyID{}, NewValidationError("companyId", "malformed company id %q", s)
	}
	return CompanyID(id), nil
}

func (id CompanyID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is unset
func (id CompanyID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id CompanyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CompanyID) UnmarshalText(b []byte) error {
	parsed, err := ParseCompanyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Difficulty is a question difficulty. The empty value means "no rating".
type Difficulty string

const (
	DifficultyNone   Difficulty = ""
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// NormalizeDifficulty maps any casing of easy/medium/hard to a Difficulty.
// Anything else becomes DifficultyNone.
func NormalizeDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyNone
	}
}

// ParseDifficulty is the strict form of NormalizeDifficulty used for user input
func ParseDifficulty(s string) (Difficulty, error) {
	d := NormalizeDifficulty(s)
	if d == DifficultyNone {
		return DifficultyNone, NewValidationError("userDifficulty", "must be one of Easy, Medium, Hard or null")
	}
	return d, nil
}

// Rank orders difficulties Easy < Medium < Hard < none
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 3
	}
}

// Ptr returns nil for DifficultyNone, used for nullable columns
func (d Difficulty) Ptr() *string {
	if d == DifficultyNone {
		return nil
	}
	s := string(d)
	return &s
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	if d == DifficultyNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Difficulty) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = DifficultyNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("difficulty must be a string: %w", err)
	}
	*d = NormalizeDifficulty(s)
	return nil
}

// Question is a canonical catalog entry, unique by Link
type Question struct {
	ID             QuestionID `json:"id"`
	Link           string     `json:"link"`
	Title          string     `json:"title"`
	LeetDifficulty Difficulty `json:"leetDifficulty"`
	Tags           []string   `json:"tags"`
}

// Slug returns the judge slug derived from the question link
func (q *Question) Slug() string {
	return SlugFromLink(q.Link)
}

// HasTag reports exact membership of tag in the question's tags
func (q *Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Company is a catalog contributor, unique by Name
type Company struct {
	ID   CompanyID `json:"id"`
	Name string    `json:"name"`
}

// Placement places a question in a company bucket
type Placement struct {
	CompanyID      CompanyID  `json:"companyId"`
	QuestionID     QuestionID `json:"questionId"`
	Bucket         string     `json:"bucket"`
	Frequency      float64    `json:"frequency"`
	AcceptanceRate float64    `json:"acceptanceRate"`
}

// PlacementRow is a placement joined with its question. Seq is the insertion
// sequence that defines natural order.
type PlacementRow struct {
	Placement
	Seq      int64
	Question Question
}

// QuestionPlacement names a company bucket a question appears in
type QuestionPlacement struct {
	Company string `json:"company"`
	Bucket  string `json:"bucket"`
}

// SlugFromLink returns the last non-empty path segment of a link, ignoring
// the query string, fragment and trailing slashes.
func SlugFromLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(link, "?#"); i >= 0 {
		path = link[:i]
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
