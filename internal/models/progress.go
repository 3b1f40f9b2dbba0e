package models

import (
	"time"
)

// Scope ties a progress record to the catalog view it was edited from
type Scope struct {
	CompanyID CompanyID `json:"companyId"`
	Bucket    string    `json:"bucket"`
}

// Key returns the store-boundary encoding of the scope. Generic records use "".
func (s *Scope) Key() (companyID, bucket string) {
	if s == nil {
		return "", ""
	}
	return s.CompanyID.String(), s.Bucket
}

// Progress is a user's state for one question. A nil Scope marks the generic record.
type Progress struct {
	UserID         string     `json:"userId"`
	QuestionID     QuestionID `json:"questionId"`
	Scope          *Scope     `json:"scope,omitempty"`
	Solved         bool       `json:"solved"`
	UserDifficulty Difficulty `json:"userDifficulty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// DefaultProgress is the state of a question the user never touched
func DefaultProgress(userID string, qid QuestionID) Progress {
	return Progress{UserID: userID, QuestionID: qid}
}

// ProgressUpdate is a partial update. Nil fields are left untouched; a
// non-nil UserDifficulty pointing at DifficultyNone clears the rating.
type ProgressUpdate struct {
	Solved         *bool
	UserDifficulty *Difficulty
}

// IsEmpty reports whether the update sets nothing
func (u ProgressUpdate) IsEmpty() bool {
	return u.Solved == nil && u.UserDifficulty == nil
}

// Apply writes the provided fields onto p
func (u ProgressUpdate) Apply(p *Progress) {
	if u.Solved != nil {
		p.Solved = *u.Solved
	}
	if u.UserDifficulty != nil {
		p.UserDifficulty = *u.UserDifficulty
	}
}

// ProgressIndex resolves progress records for one user with the
// scoped-then-generic fallback rule.
type ProgressIndex struct {
	userID  string
	generic map[QuestionID]Progress
	scoped  map[scopedKey]Progress
}

type scopedKey struct {
	question QuestionID
	company  CompanyID
	bucket   string
}

// NewProgressIndex indexes the given records, which must all belong to userID
func NewProgressIndex(userID string, records []Progress) *ProgressIndex {
	idx := &ProgressIndex{
		userID:  userID,
		generic: make(map[QuestionID]Progress),
		scoped:  make(map[scopedKey]Progress),
	}
	for _, p := range records {
		if p.Scope == nil {
			idx.generic[p.QuestionID] = p
			continue
		}
		idx.scoped[scopedKey{p.QuestionID, p.Scope.CompanyID, p.Scope.Bucket}] = p
	}
	return idx
}

// Resolve returns the scoped record when scope is given and one exists, else
// the generic record, else the default state.
func (idx *ProgressIndex) Resolve(qid QuestionID, scope *Scope) Progress {
	if scope != nil {
		if p, ok := idx.scoped[scopedKey{qid, scope.CompanyID, scope.Bucket}]; ok {
			return p
		}
	}
	if p, ok := idx.generic[qid]; ok {
		return p
	}
	return DefaultProgress(idx.userID, qid)
}

// JudgeAccount holds a user's stored external judge credentials
type JudgeAccount struct {
	UserID       string    `json:"userId"`
	Handle       string    `json:"handle"`
	SessionToken string    `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
