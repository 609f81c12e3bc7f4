package models

// Policy is the single admin-managed record constraining uploads and
// passwords across the service.
type Policy struct {
	MaxFileSizeMB       int
	MinValidityHours    int
	MaxValidityDays     int
	DefaultValidityDays int
	MinPasswordLength   int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFileSizeMB:       50,
		MinValidityHours:    1,
		MaxValidityDays:     30,
		DefaultValidityDays: 7,
		MinPasswordLength:   6,
	}
}

func (p Policy) MaxFileSizeBytes() int64 {
	return int64(p.MaxFileSizeMB) * 1024 * 1024
}
