package domain

// PermissionRun allows submitting candidates to the judge
const PermissionRun = "judge.run"

type AuthPayload struct {
	Subject    string   `json:"sub"`
	Permission []string `json:"permission"`
}

func (p AuthPayload) Can(permission string) bool {
	for _, granted := range p.Permission {
		if granted == permission {
			return true
		}
	}
	return false
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
