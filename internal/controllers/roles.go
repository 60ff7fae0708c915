package controllers

var allowedRoles = map[string]struct{}{
	"admin": {},
	"dosen": {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
