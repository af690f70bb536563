package flow

// Bucket is an ordinal answer to a "how many" survey question. The zero
// value means unanswered.
type Bucket int

const (
	BucketUnset Bucket = iota
	BucketNone
	BucketFew
	BucketSome
	BucketMany
)

// Buckets lists the answerable values in display order.
var Buckets = []Bucket{BucketNone, BucketFew, BucketSome, BucketMany}

// Question identifies one of the three survey questions.
type Question int

const (
	QuestionRolesApplied Question = iota
	QuestionCompaniesEmailed
	QuestionCompaniesInterviewed
)

// Questions lists the survey questions in display order.
var Questions = []Question{QuestionRolesApplied, QuestionCompaniesEmailed, QuestionCompaniesInterviewed}

var bucketLabels = map[Question][4]string{
	QuestionRolesApplied:         {"0", "1-5", "6-20", "20+"},
	QuestionCompaniesEmailed:     {"0", "1-5", "6-20", "20+"},
	QuestionCompaniesInterviewed: {"0", "1-2", "3-5", "5+"},
}

// Label returns the display label for b on question q, or "" when unset.
func (q Question) Label(b Bucket) string {
	if b < BucketNone || b > BucketMany {
		return ""
	}
	return bucketLabels[q][b-BucketNone]
}

// Labels returns the four labels of q in display order.
func (q Question) Labels() []string {
	labels := bucketLabels[q]
	return labels[:]
}

// SurveyAnswers holds one answer per question.
type SurveyAnswers struct {
	RolesApplied         Bucket
	CompaniesEmailed     Bucket
	CompaniesInterviewed Bucket
}

// Get returns the answer to q.
func (s SurveyAnswers) Get(q Question) Bucket {
	switch q {
	case QuestionRolesApplied:
		return s.RolesApplied
	case QuestionCompaniesEmailed:
		return s.CompaniesEmailed
	default:
		return s.CompaniesInterviewed
	}
}

func (s *SurveyAnswers) set(q Question, b Bucket) {
	switch q {
	case QuestionRolesApplied:
		s.RolesApplied = b
	case QuestionCompaniesEmailed:
		s.CompaniesEmailed = b
	default:
		s.CompaniesInterviewed = b
	}
}

// Complete reports whether every question is answered.
func (s SurveyAnswers) Complete() bool {
	return s.RolesApplied != BucketUnset &&
		s.CompaniesEmailed != BucketUnset &&
		s.CompaniesInterviewed != BucketUnset
}

// Answered reports whether any question is answered.
func (s SurveyAnswers) Answered() bool {
	return s.RolesApplied != BucketUnset ||
		s.CompaniesEmailed != BucketUnset ||
		s.CompaniesInterviewed != BucketUnset
}

func (s SurveyAnswers) labels() (roles, emailed, interviewed string) {
	return QuestionRolesApplied.Label(s.RolesApplied),
		QuestionCompaniesEmailed.Label(s.CompaniesEmailed),
		QuestionCompaniesInterviewed.Label(s.CompaniesInterviewed)
}
