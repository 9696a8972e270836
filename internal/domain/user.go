package domain

// AuthProvider identifies the social login used
type AuthProvider string

const (
	ProviderGoogle AuthProvider = "google"
	ProviderKakao  AuthProvider = "kakao"
	ProviderNaver  AuthProvider = "naver"
)

// User represents a signed-in visitor
type User struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Avatar   string       `json:"avatar,omitempty"`
	Provider AuthProvider `json:"provider"`
}

// AuthProfile is the persisted authentication blob
type AuthProfile struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// UserLogin represents a provider login request.
// No credential is verified; the provider buttons are placeholders.
type UserLogin struct {
	Provider AuthProvider `json:"provider" validate:"required,oneof=google kakao naver"`
	ID       string       `json:"id" validate:"omitempty,max=128"`
	Name     string       `json:"name" validate:"required,max=100"`
	Email    string       `json:"email" validate:"required,email,max=255"`
	Avatar   string       `json:"avatar" validate:"omitempty,url"`
}

// TokenResponse is returned after a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
