package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrTokenMismatch = errors.New("token does not belong to this client")

// LoginResult is returned after a successful login
type LoginResult struct {
	domain.TokenResponse
	SessionsMoved int `json:"sessions_moved"`
}

// AuthService handles authentication operations
type AuthService struct {
	jwtManager *security.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(jwtManager *security.JWTManager) *AuthService {
	return &AuthService{jwtManager: jwtManager}
}

// Login signs the visitor of ws in, moves their guest sessions and reloads
// the durable list. Provider credentials are not checked.
func (s *AuthService) Login(ctx context.Context, ws *workspace.Workspace, input domain.UserLogin) (*LoginResult, error) {
	id := input.ID
	if id == "" {
		id = fmt.Sprintf("%s_%s", input.Provider, uuid.NewString())
	}

	user := &domain.User{
		ID:       id,
		Name:     input.Name,
		Email:    input.Email,
		Avatar:   input.Avatar,
		Provider: input.Provider,
	}

	token, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	ws.Lock()
	moved := ws.Gate.Login(ctx, user, token)
	ws.Store.Load(ctx, true)
	ws.Unlock()

	return &LoginResult{
		TokenResponse: domain.TokenResponse{
			AccessToken: token,
			ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
			User:        user,
		},
		SessionsMoved: moved,
	}, nil
}

// Logout signs the visitor out and switches the store back to guest sessions
func (s *AuthService) Logout(ctx context.Context, ws *workspace.Workspace) {
	ws.Lock()
	defer ws.Unlock()

	ws.Gate.Logout(ctx)
	ws.Store.StartNewChat()
	ws.Store.Load(ctx, false)
}

// Verify checks that token is valid and was issued to the user signed in on ws
func (s *AuthService) Verify(ws *workspace.Workspace, token string) (*security.Claims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	profile := ws.Gate.Profile()
	if !profile.IsAuthenticated || profile.User == nil || profile.User.ID != claims.UserID {
		log.Debug().Str("client_id", ws.ClientID).Str("user_id", claims.UserID).Msg("token presented by another client")
		return nil, ErrTokenMismatch
	}

	return claims, nil
}
