// Package auth はユーザー登録、ログイン、トークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// usernamePattern はユーザー名の許可文字を定義する。英数字とアンダースコアのみ。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// maxUsernameLength はユーザー名の最大長。usersテーブルのカラム幅に合わせる。
const maxUsernameLength = 64

// BoardSeeder は新規ユーザーの初期ボードを構築するインターフェース。
// 登録処理の一部として同期的に実行される。
type BoardSeeder interface {
	// CreateInitialSet は新規ユーザーのデフォルトカテゴリと例示タスクを作成する。
	CreateInitialSet(ctx context.Context, ownerID string) ([]*model.Category, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // bcryptのコストパラメータ
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokens    *TokenManager
	seeder    BoardSeeder
	collector metrics.MetricsCollector
	config    ServiceConfig
}

// NewService はServiceを生成する。collectorはnil可。
func NewService(
	userRepo repository.UserRepository,
	tokens *TokenManager,
	seeder BoardSeeder,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		seeder:    seeder,
		collector: collector,
		config:    config,
	}
}

// Register は新規ユーザーを登録し、初期ボードを構築する。
// ユーザー名は英数字とアンダースコアのみ許可され、重複は拒否される。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	// 1. 入力検証
	if username == "" || len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return nil, model.NewInvalidUsernameError()
	}
	if password == "" {
		return nil, model.NewInvalidRequestError("パスワードが入力されていません。")
	}

	// 2. ユーザー名の重複チェック
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username availability: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError(username)
	}

	// 3. パスワードをハッシュ化して保存
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 4. 初期ボード（デフォルトカテゴリと例示タスク）を構築
	if _, err := s.seeder.CreateInitialSet(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to seed initial board: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordRegistration()
	}
	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, nil
}

// Login は資格情報を検証し、アクセストークンを発行する。
// ユーザー不存在とパスワード不一致は同一のエラーを返し、列挙攻撃を防ぐ。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		if s.collector != nil {
			s.collector.RecordLoginFailure()
		}
		return "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if s.collector != nil {
			s.collector.RecordLoginFailure()
		}
		slog.Info("login failed", slog.String("username", username))
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordLoginSuccess()
	}
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return token, nil
}

// GetCurrentUser は認証済みユーザーIDから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}
