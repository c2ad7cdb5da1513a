package packets

type TokenRequest struct {
	Operator string `json:"operator" binding:"required"`
	Key      string `json:"key"      binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
