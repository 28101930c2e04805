package iam_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-iam"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockConfig implements iam.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetRateLimitRequests() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetRateLimitWindow() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockIdentity implements iam.Identity
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// fakeUsers embeds the directory interface so only the methods a test
// exercises need implementations.
type fakeUsers struct {
	iam.Users

	getByEmail func(ctx context.Context, email string) (*iam.User, error)
	createTx   func(ctx context.Context, tx bun.IDB, record *iam.User, criteria ...repository.InsertCriteria) (*iam.User, error)
	list       func(ctx context.Context, limit, offset int) ([]*iam.User, int, error)
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*iam.User, error) {
	return f.getByEmail(ctx, email)
}

func (f *fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *iam.User, criteria ...repository.InsertCriteria) (*iam.User, error) {
	return f.createTx(ctx, tx, record, criteria...)
}

func (f *fakeUsers) List(ctx context.Context, limit, offset int) ([]*iam.User, int, error) {
	return f.list(ctx, limit, offset)
}

// fakeRepoManager implements iam.RepositoryManager with an in-place
// transaction runner.
type fakeRepoManager struct {
	users iam.Users
}

func (f *fakeRepoManager) Validate() error {
	return nil
}

func (f *fakeRepoManager) MustValidate() {}

func (f *fakeRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f *fakeRepoManager) Users() iam.Users {
	return f.users
}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	events []iam.ActivityEvent
}

func (r *recordingSink) Record(ctx context.Context, event iam.ActivityEvent) error {
	r.events = append(r.events, event)
	return nil
}
