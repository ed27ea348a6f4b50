package models

import (
	"fmt"
	"strings"
)

// MilestoneCategory groups developmental milestones.
type MilestoneCategory string

const (
	MilestoneMotor     MilestoneCategory = "motor"
	MilestoneLanguage  MilestoneCategory = "language"
	MilestoneSocial    MilestoneCategory = "social"
	MilestoneCognitive MilestoneCategory = "cognitive"
	MilestoneHealth    MilestoneCategory = "health"
	MilestoneOther     MilestoneCategory = "other"
)

// ParseMilestoneCategory validates a category name. Empty input means other.
func ParseMilestoneCategory(s string) (MilestoneCategory, error) {
	c := MilestoneCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "":
		return MilestoneOther, nil
	case MilestoneMotor, MilestoneLanguage, MilestoneSocial, MilestoneCognitive, MilestoneHealth, MilestoneOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown milestone category %q", s)
}
