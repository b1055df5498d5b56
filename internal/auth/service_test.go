package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

// Mock repository for testing
type mockUserRepository struct {
	credentials   map[string]*Credentials
	usersByID     map[int64]*User
	inactive      map[int64]bool
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	hash := string(hashedPassword)

	return &mockUserRepository{
		credentials: map[string]*Credentials{
			"borrower@example.com": {UserID: 1, Email: "borrower@example.com", Role: user.RoleBorrower, PasswordHash: hash, IsActive: true},
			"admin@example.com":    {UserID: 2, Email: "admin@example.com", Role: user.RoleAdmin, PasswordHash: hash, IsActive: true},
			"gone@example.com":     {UserID: 3, Email: "gone@example.com", Role: user.RoleOfficer, PasswordHash: hash, IsActive: false},
		},
		usersByID: map[int64]*User{
			1: {ID: 1, Email: "borrower@example.com", Role: user.RoleBorrower},
			2: {ID: 2, Email: "admin@example.com", Role: user.RoleAdmin},
			3: {ID: 3, Email: "gone@example.com", Role: user.RoleOfficer},
		},
		inactive: map[int64]bool{3: true},
	}
}

func (m *mockUserRepository) GetCredentials(_ context.Context, email string) (*Credentials, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if c, ok := m.credentials[email]; ok {
		return c, nil
	}
	return nil, uow.ErrNotFound
}

func (m *mockUserRepository) GetUser(_ context.Context, userID int64) (*User, bool, error) {
	if m.returnError {
		return nil, false, m.errorToReturn
	}
	if u, ok := m.usersByID[userID]; ok {
		return u, !m.inactive[userID], nil
	}
	return nil, false, uow.ErrNotFound
}

func (m *mockUserRepository) setError(err error) {
	m.returnError = true
	m.errorToReturn = err
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		ctx           context.Context
		service       *Service
		mockRepo      *mockUserRepository
		tokenGen      *JWTTokenGenerator
		accessSecret  string        = "test-access-secret-0123"
		refreshSecret string        = "test-refresh-secret-0123"
		accessTTL     time.Duration = 15 * time.Minute
		refreshTTL    time.Duration = 24 * time.Hour
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				// Given
				dto := LoginDTO{Email: "borrower@example.com", Password: "correct_password"}

				// When
				tokens, err := service.Authenticate(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
				gomega.Expect(tokens.TokenType).To(gomega.Equal("Bearer"))
				gomega.Expect(tokens.ExpiresIn).To(gomega.Equal(int64(900)))
			})

			ginkgo.It("should carry the role in the access token", func() {
				// Given
				dto := LoginDTO{Email: "admin@example.com", Password: "correct_password"}

				// When
				tokens, err := service.Authenticate(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal("2"))
				gomega.Expect(claims.Email).To(gomega.Equal("admin@example.com"))
				gomega.Expect(claims.Role).To(gomega.Equal(user.RoleAdmin))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return error for unknown email", func() {
				tokens, err := service.Authenticate(ctx, LoginDTO{Email: "nobody@example.com", Password: "x"})

				gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidCredentials))
				gomega.Expect(tokens.AccessToken).To(gomega.BeEmpty())
			})

			ginkgo.It("should return error for wrong password", func() {
				tokens, err := service.Authenticate(ctx, LoginDTO{Email: "borrower@example.com", Password: "wrong_password"})

				gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidCredentials))
				gomega.Expect(tokens.RefreshToken).To(gomega.BeEmpty())
			})

			ginkgo.It("should reject an inactive user", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "gone@example.com", Password: "correct_password"})

				gomega.Expect(err).To(gomega.MatchError(apperrors.ErrUserInactive))
			})
		})

		ginkgo.Context("when input validation fails", func() {
			ginkgo.It("should return validation error for empty email", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Password: "password"})

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(err.Error()).To(gomega.ContainSubstring("email is required"))
				appErr, ok := apperrors.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.StatusCode).To(gomega.Equal(400))
			})

			ginkgo.It("should return validation error for empty password", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "borrower@example.com"})

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(err.Error()).To(gomega.ContainSubstring("password is required"))
			})
		})

		ginkgo.Context("when the repository fails", func() {
			ginkgo.It("should wrap the error", func() {
				mockRepo.setError(errors.New("connection refused"))

				_, err := service.Authenticate(ctx, LoginDTO{Email: "borrower@example.com", Password: "correct_password"})

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(err.Error()).To(gomega.ContainSubstring("connection refused"))
			})
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should issue a new pair from a refresh token", func() {
			// Given
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "borrower@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			claims, err := service.ValidateAccessToken(refreshed.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("1"))
		})

		ginkgo.It("should not accept an access token as a refresh token", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "borrower@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(ctx, tokens.AccessToken)

			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidToken))
		})

		ginkgo.It("should refuse a user that became inactive", func() {
			refresh, err := tokenGen.GenerateRefreshToken("3", "gone@example.com", user.RoleOfficer)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(ctx, refresh)

			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrUserInactive))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should report an expired token", func() {
			// Given
			claims := &Claims{
				UserID: "1",
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(accessSecret))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			_, err = service.ValidateAccessToken(expired)

			// Then
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrTokenExpired))
		})

		ginkgo.It("should reject a token signed with another secret", func() {
			other := NewJWTTokenGenerator("another-access-secret-xx", refreshSecret, accessTTL, refreshTTL)
			token, err := other.GenerateAccessToken("1", "borrower@example.com", user.RoleBorrower)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token)

			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidToken))
		})

		ginkgo.It("should reject garbage", func() {
			_, err := service.ValidateAccessToken("not-a-jwt")
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidToken))
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("should produce a bcrypt hash that verifies", func() {
			hash, err := service.HashPassword("s3cret")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret"))).To(gomega.Succeed())
		})
	})
})
