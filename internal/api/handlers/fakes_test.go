package handlers

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

var errUnexpected = stderrors.New("unexpected call")

type fakeAuditService struct {
	submitFn      func(context.Context, application.SubmitEntryCommand) (*application.SubmitEntryResult, error)
	respondFn     func(context.Context, application.RespondCommand) (*application.EntryDTO, error)
	listPendingFn func(context.Context, application.Actor) ([]application.EntryDTO, error)
	historyFn     func(context.Context, string) ([]application.EntryDTO, error)
	lookupFn      func(context.Context, string) (*application.ReferenceItemDTO, error)
	clientsFn     func(context.Context, string) ([]application.IdentityDTO, error)
}

func (f *fakeAuditService) SubmitEntry(ctx context.Context, cmd application.SubmitEntryCommand) (*application.SubmitEntryResult, error) {
	if f.submitFn == nil {
		return nil, errUnexpected
	}
	return f.submitFn(ctx, cmd)
}

func (f *fakeAuditService) Respond(ctx context.Context, cmd application.RespondCommand) (*application.EntryDTO, error) {
	if f.respondFn == nil {
		return nil, errUnexpected
	}
	return f.respondFn(ctx, cmd)
}

func (f *fakeAuditService) ListPending(ctx context.Context, actor application.Actor) ([]application.EntryDTO, error) {
	if f.listPendingFn == nil {
		return nil, errUnexpected
	}
	return f.listPendingFn(ctx, actor)
}

func (f *fakeAuditService) StaffHistory(ctx context.Context, staffID string) ([]application.EntryDTO, error) {
	if f.historyFn == nil {
		return nil, errUnexpected
	}
	return f.historyFn(ctx, staffID)
}

func (f *fakeAuditService) LookupReference(ctx context.Context, raw string) (*application.ReferenceItemDTO, error) {
	if f.lookupFn == nil {
		return nil, errUnexpected
	}
	return f.lookupFn(ctx, raw)
}

func (f *fakeAuditService) ClientsByLocation(ctx context.Context, location string) ([]application.IdentityDTO, error) {
	if f.clientsFn == nil {
		return nil, errUnexpected
	}
	return f.clientsFn(ctx, location)
}

type fakeAuthService struct {
	loginFn    func(context.Context, application.LoginCommand) (*application.LoginResult, error)
	meFn       func(context.Context, string) (*application.IdentityDTO, error)
	registerFn func(context.Context, application.RegisterCommand) (*application.RegisterResult, error)
	updateFn   func(context.Context, string, application.UpdateIdentityCommand) (*application.IdentityDTO, error)
}

func (f *fakeAuthService) Login(ctx context.Context, cmd application.LoginCommand) (*application.LoginResult, error) {
	if f.loginFn == nil {
		return nil, errUnexpected
	}
	return f.loginFn(ctx, cmd)
}

func (f *fakeAuthService) Me(ctx context.Context, id string) (*application.IdentityDTO, error) {
	if f.meFn == nil {
		return nil, errUnexpected
	}
	return f.meFn(ctx, id)
}

func (f *fakeAuthService) Register(ctx context.Context, cmd application.RegisterCommand) (*application.RegisterResult, error) {
	if f.registerFn == nil {
		return nil, errUnexpected
	}
	return f.registerFn(ctx, cmd)
}

func (f *fakeAuthService) UpdateIdentity(ctx context.Context, id string, cmd application.UpdateIdentityCommand) (*application.IdentityDTO, error) {
	if f.updateFn == nil {
		return nil, errUnexpected
	}
	return f.updateFn(ctx, id, cmd)
}

type fakeAdminService struct {
	uploadFn        func(context.Context, []application.ReferenceRow) (*application.UploadResult, error)
	assignStaffFn   func(context.Context, []application.RosterRow) (*application.UploadResult, error)
	assignClientsFn func(context.Context, []application.RosterRow) (*application.UploadResult, error)
	listFn          func(context.Context, string) ([]application.IdentityDTO, error)
	reportFn        func(context.Context, application.ReportQuery) ([]application.ReportRowDTO, error)
	deleteFn        func(context.Context, string) (*application.DeleteResult, error)
}

func (f *fakeAdminService) UploadReference(ctx context.Context, rows []application.ReferenceRow) (*application.UploadResult, error) {
	if f.uploadFn == nil {
		return nil, errUnexpected
	}
	return f.uploadFn(ctx, rows)
}

func (f *fakeAdminService) AssignStaff(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error) {
	if f.assignStaffFn == nil {
		return nil, errUnexpected
	}
	return f.assignStaffFn(ctx, rows)
}

func (f *fakeAdminService) AssignClients(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error) {
	if f.assignClientsFn == nil {
		return nil, errUnexpected
	}
	return f.assignClientsFn(ctx, rows)
}

func (f *fakeAdminService) ListIdentities(ctx context.Context, role string) ([]application.IdentityDTO, error) {
	if f.listFn == nil {
		return nil, errUnexpected
	}
	return f.listFn(ctx, role)
}

func (f *fakeAdminService) InventoryReport(ctx context.Context, query application.ReportQuery) ([]application.ReportRowDTO, error) {
	if f.reportFn == nil {
		return nil, errUnexpected
	}
	return f.reportFn(ctx, query)
}

func (f *fakeAdminService) DeleteAllStaff(ctx context.Context) (*application.DeleteResult, error) {
	return f.delete(ctx, "staff")
}

func (f *fakeAdminService) DeleteAllClients(ctx context.Context) (*application.DeleteResult, error) {
	return f.delete(ctx, "clients")
}

func (f *fakeAdminService) DeleteAllReference(ctx context.Context) (*application.DeleteResult, error) {
	return f.delete(ctx, "reference")
}

func (f *fakeAdminService) delete(ctx context.Context, what string) (*application.DeleteResult, error) {
	if f.deleteFn == nil {
		return nil, errUnexpected
	}
	return f.deleteFn(ctx, what)
}

type fakeDB struct{ state string }

func (f fakeDB) State(context.Context) string { return f.state }

// caller is the principal the test router authenticates every request as. nil means anonymous.
type caller struct {
	principal *auth.Principal
}

func (c *caller) as(role domain.Role) *auth.Principal {
	c.principal = &auth.Principal{ID: primitive.NewObjectID(), Role: role, Name: "Test " + string(role)}
	return c.principal
}

func (c *caller) authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c.principal == nil {
			middleware.AbortWithAppError(ctx, errors.ErrUnauthorized("missing bearer token"))
			return
		}
		auth.WithPrincipal(ctx, c.principal)
		ctx.Next()
	}
}

type testServices struct {
	audit  *fakeAuditService
	auth   *fakeAuthService
	admin  *fakeAdminService
	caller *caller
}

func newTestRouter(streams Subscriber) (*gin.Engine, *testServices) {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()

	svc := &testServices{
		audit:  &fakeAuditService{},
		auth:   &fakeAuthService{},
		admin:  &fakeAdminService{},
		caller: &caller{},
	}
	logger := logging.NewNop()

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api")

	authenticate := svc.caller.authenticate()
	NewAuthHandler(svc.auth, logger).RegisterRoutes(api, authenticate, nil)
	NewInventoryHandler(svc.audit, streams, logger).RegisterRoutes(api, authenticate, nil)
	NewAdminHandler(svc.admin, logger).RegisterRoutes(api, authenticate)
	NewHealthHandler("audit-service", "test", fakeDB{state: "connected"}).RegisterRoutes(router)

	return router, svc
}

func performRequest(router http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func performJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return performRequest(router, method, path, reader, "application/json")
}

func multipartFile(filename, content string) (io.Reader, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", filename)
	_, _ = part.Write([]byte(content))
	_ = w.Close()
	return &buf, w.FormDataContentType()
}
