package engine

import "strings"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type LookingFor string

const (
	LookingForMale   LookingFor = "male"
	LookingForFemale LookingFor = "female"
	LookingForAll    LookingFor = "all"
)

// ParseGender accepts an empty string as "undeclared".
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case "", GenderMale, GenderFemale:
		return g, nil
	}
	return "", ErrInvalidGender
}

// ParseLookingFor accepts an empty string as "undeclared".
func ParseLookingFor(s string) (LookingFor, error) {
	switch l := LookingFor(strings.ToLower(strings.TrimSpace(s))); l {
	case "", LookingForMale, LookingForFemale, LookingForAll:
		return l, nil
	}
	return "", ErrInvalidLookingFor
}

// Preference is the part of a profile the filter reads.
type Preference struct {
	Gender     Gender
	LookingFor LookingFor
}

func (p Preference) declared() bool {
	return p.Gender != "" && p.LookingFor != ""
}

func (p Preference) accepts(g Gender) bool {
	return p.LookingFor == LookingForAll || string(p.LookingFor) == string(g)
}

// Compatible reports whether s and c may see each other. Undeclared
// preferences on either side fail closed. The check is symmetric.
func Compatible(s, c Preference) bool {
	if !s.declared() || !c.declared() {
		return false
	}
	return s.accepts(c.Gender) && c.accepts(s.Gender)
}
