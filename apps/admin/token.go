package main

import (
	"fmt"

	echoapi "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core"
)

// token prints an API token for the person. Students are the default.
func (cli *commandLine) token(person core.Person, roles []string) error {
	for _, role := range roles {
		if !isRole(role) {
			return core.NewInvalidValueError(role, "unknown role")
		}
	}
	if len(roles) == 0 {
		roles = []string{echoapi.RoleStudent}
	}
	token, err := echoapi.GenerateToken(echoapi.NewClaims(person, roles...))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func isRole(role string) bool {
	for _, r := range echoapi.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
