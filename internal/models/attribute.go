package models

import "fmt"

// Attribute identifies a Perspective API scoring attribute.
type Attribute string

const (
	AttributeToxicity       Attribute = "TOXICITY"
	AttributeSevereToxicity Attribute = "SEVERE_TOXICITY"
	AttributeIdentityAttack Attribute = "IDENTITY_ATTACK"
	AttributeInsult         Attribute = "INSULT"
	AttributeThreat         Attribute = "THREAT"
)

// AllAttributes returns the closed set of scored attributes in a stable order.
func AllAttributes() []Attribute {
	return []Attribute{
		AttributeToxicity,
		AttributeSevereToxicity,
		AttributeIdentityAttack,
		AttributeInsult,
		AttributeThreat,
	}
}

// ParseAttribute validates a raw attribute name against the closed set.
func ParseAttribute(raw string) (Attribute, error) {
	for _, attr := range AllAttributes() {
		if string(attr) == raw {
			return attr, nil
		}
	}
	return "", fmt.Errorf("unknown attribute: %s", raw)
}

// ScoreSet maps each scored attribute to a summary score in [0, 1].
type ScoreSet map[Attribute]float64

// ThresholdTable maps each attribute to its escalation threshold in [0, 1].
// Loaded once from configuration, read-only for the process lifetime.
type ThresholdTable map[Attribute]float64
