package grants_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-grants"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// stubStore is an in-memory CredentialStore with injectable failures.
type stubStore struct {
	byHandle map[string]*grants.Credential
	byID     map[uuid.UUID]*grants.Credential
	taken    []string

	findErr  error
	getErr   error
	saveErr  error
	touchErr error

	touched []uuid.UUID
	saved   []*grants.Credential
}

func newStubStore(records ...*grants.Credential) *stubStore {
	s := &stubStore{
		byHandle: map[string]*grants.Credential{},
		byID:     map[uuid.UUID]*grants.Credential{},
	}
	for _, r := range records {
		s.byHandle[r.Handle] = r
		s.byID[r.ID] = r
	}
	return s
}

func (s *stubStore) GetByHandle(ctx context.Context, handle string) (*grants.Credential, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.byHandle[handle]
	if !ok {
		return nil, errors.New("credential not found", errors.CategoryNotFound)
	}
	return record, nil
}

func (s *stubStore) FindByID(ctx context.Context, id uuid.UUID) (*grants.Credential, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.byID[id]
	if !ok {
		return nil, errors.New("credential not found", errors.CategoryNotFound)
	}
	return record, nil
}

func (s *stubStore) FindByHandles(ctx context.Context, handles []string) ([]string, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := []string{}
	for _, candidate := range handles {
		for _, taken := range s.taken {
			if candidate == taken {
				out = append(out, candidate)
			}
		}
	}
	return out, nil
}

func (s *stubStore) Save(ctx context.Context, record *grants.Credential) (*grants.Credential, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saved = append(s.saved, record)
	s.byHandle[record.Handle] = record
	s.byID[record.ID] = record
	return record, nil
}

func (s *stubStore) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched = append(s.touched, id)
	return nil
}

// stubTokens is a canned TokenService.
type stubTokens struct {
	issued    string
	issueErr  error
	claims    *grants.GrantClaims
	verifyErr error
	lastKind  grants.TokenKind
}

func (s *stubTokens) Issue(kind grants.TokenKind, claims *grants.GrantClaims) (string, error) {
	s.lastKind = kind
	return s.issued, s.issueErr
}

func (s *stubTokens) Verify(kind grants.TokenKind, raw string) (*grants.GrantClaims, error) {
	s.lastKind = kind
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.claims, nil
}

func (s *stubTokens) Expiration(kind grants.TokenKind) (int, error) {
	return 3600, nil
}

// MockContext mocks router.Context.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	values, _ := args.Get(0).([]string)
	return values
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	merged, _ := args.Get(0).(map[string]any)
	return merged
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	file, _ := args.Get(0).(*multipart.FileHeader)
	return file, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	params, _ := args.Get(0).(map[string]string)
	return params
}
