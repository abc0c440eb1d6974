package guard

import (
	"strings"
)

// Policy defines the limits applied to one generation.
type Policy struct {
	MaxAttempts int      `json:"max_attempts"`
	SelfNames   []string `json:"self_names"`
	// DangerousPatterns are substrings that earn a non-fatal warning.
	DangerousPatterns []string `json:"dangerous_patterns"`
}

// DefaultPolicy provides safe defaults.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	SelfNames:   []string{"t", "termax"},
	DangerousPatterns: []string{
		"rm -rf /",
		"rm -rf ~",
		"mkfs",
		"dd if=",
		":(){",
		"> /dev/sd",
		"chmod -R 777 /",
	},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
	Fatal   bool
}

func (v *Violation) Error() string {
	return v.Rule + ": " + v.Message
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckAttempts reports whether another attempt may start after attempt
// attempts have been made.
func (g *Guard) CheckAttempts(attempts int) *Violation {
	if attempts >= g.policy.MaxAttempts {
		return &Violation{Rule: "max_attempts", Message: "Attempt limit reached", Fatal: true}
	}
	return nil
}

// CheckSelfReference rejects commands that would invoke this tool again.
func (g *Guard) CheckSelfReference(cmd string) *Violation {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	for _, name := range g.policy.SelfNames {
		if fields[0] == name {
			return &Violation{Rule: "self_reference", Message: "Command invokes " + name}
		}
	}
	return nil
}

// CheckDangerous flags commands matching a dangerous pattern. The result is
// a warning for the user, never a rejection.
func (g *Guard) CheckDangerous(cmd string) *Violation {
	for _, p := range g.policy.DangerousPatterns {
		if strings.Contains(cmd, p) {
			return &Violation{Rule: "dangerous_command", Message: "Command matches " + p}
		}
	}
	return nil
}

// AvoidSelfInstruction is appended to an intent after a self-referential reply.
func (g *Guard) AvoidSelfInstruction() string {
	return ", do not use command " + strings.Join(g.policy.SelfNames, " or ") + "."
}
