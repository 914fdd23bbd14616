package agents

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Role names an agent function in a pipeline or graph node.
type Role string

// Known roles. Verifier nodes are declared in graphs but executed by the
// verification step, not by an agent call.
const (
	RoleGenerator Role = "generator"
	RoleCritic    Role = "critic"
	RoleJudge     Role = "judge"
	RoleRouter    Role = "router"
	RoleVerifier  Role = "verifier"
)

var roles = []Role{
	RoleGenerator,
	RoleCritic,
	RoleJudge,
	RoleRouter,
	RoleVerifier,
}

// Roles returns a copy of the known roles.
func Roles() []Role {
	return slices.Clone(roles)
}

// PromptRoles returns the roles whose system prompt may be overridden by a
// persisted strategy.
func PromptRoles() []Role {
	return []Role{RoleGenerator, RoleCritic, RoleJudge}
}

// ParseRole validates a string as a known role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !slices.Contains(roles, r) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// UnmarshalJSON validates that the decoded string is a known role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalYAML validates that the decoded scalar is a known role.
func (r *Role) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = v
	return nil
}
