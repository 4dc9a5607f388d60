package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
)

// VoterRepositoryMock keeps voters in memory. Fn fields override the default behavior.
type VoterRepositoryMock struct {
	mu                 sync.Mutex
	Voters             map[uuid.UUID]*voter.Voter
	UpdateCalls        int
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*voter.Voter, error)
	UpdateFn           func(ctx context.Context, v *voter.Voter) error
	ClearCachedEmailFn func(ctx context.Context, emailID uuid.UUID, normalized string, except uuid.UUID) ([]uuid.UUID, error)
}

func NewVoterRepositoryMock(voters ...*voter.Voter) *VoterRepositoryMock {
	m := &VoterRepositoryMock{Voters: make(map[uuid.UUID]*voter.Voter)}
	for _, v := range voters {
		cp := *v
		m.Voters[v.ID] = &cp
	}
	return m
}

func (m *VoterRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*voter.Voter, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Voters[id]
	if !ok {
		return nil, voter.ErrVoterNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *VoterRepositoryMock) Update(ctx context.Context, v *voter.Voter) error {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Voters[v.ID]; !ok {
		return voter.ErrVoterNotFound
	}
	cp := *v
	m.Voters[v.ID] = &cp
	return nil
}

func (m *VoterRepositoryMock) ClearCachedEmail(ctx context.Context, emailID uuid.UUID, normalized string, except uuid.UUID) ([]uuid.UUID, error) {
	if m.ClearCachedEmailFn != nil {
		return m.ClearCachedEmailFn(ctx, emailID, normalized, except)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared []uuid.UUID
	for id, v := range m.Voters {
		if id == except {
			continue
		}
		if (v.PrimaryEmailID != nil && *v.PrimaryEmailID == emailID) || strings.EqualFold(v.CachedEmail(), normalized) {
			v.ClearPrimaryEmail()
			cleared = append(cleared, id)
		}
	}
	return cleared, nil
}

// Get returns the stored voter without copying, for assertions.
func (m *VoterRepositoryMock) Get(id uuid.UUID) *voter.Voter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Voters[id]
}

// DeviceLinkRepositoryMock keeps device links in memory.
type DeviceLinkRepositoryMock struct {
	mu                    sync.Mutex
	Links                 map[string]*voter.DeviceLink
	UpdateFn              func(ctx context.Context, link *voter.DeviceLink) error
	ClearEmailSecretKeyFn func(ctx context.Context, secretKey string) error
}

func NewDeviceLinkRepositoryMock(links ...*voter.DeviceLink) *DeviceLinkRepositoryMock {
	m := &DeviceLinkRepositoryMock{Links: make(map[string]*voter.DeviceLink)}
	for _, l := range links {
		cp := *l
		m.Links[l.DeviceID] = &cp
	}
	return m
}

func (m *DeviceLinkRepositoryMock) GetByDeviceID(ctx context.Context, deviceID string) (*voter.DeviceLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Links[deviceID]
	if !ok {
		return nil, fmt.Errorf("device link %s: %w", deviceID, voter.ErrVoterNotFound)
	}
	cp := *l
	return &cp, nil
}

func (m *DeviceLinkRepositoryMock) Update(ctx context.Context, link *voter.DeviceLink) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, link)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if key := link.EmailSecretKey; key != nil {
		for id, other := range m.Links {
			if id != link.DeviceID && other.EmailSecretKey != nil && *other.EmailSecretKey == *key {
				return ports.ErrConflict
			}
		}
	}
	cp := *link
	m.Links[link.DeviceID] = &cp
	return nil
}

func (m *DeviceLinkRepositoryMock) ClearEmailSecretKey(ctx context.Context, secretKey string) error {
	if m.ClearEmailSecretKeyFn != nil {
		return m.ClearEmailSecretKeyFn(ctx, secretKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Links {
		if l.EmailSecretKey != nil && *l.EmailSecretKey == secretKey {
			l.EmailSecretKey = nil
		}
	}
	return nil
}

func (m *DeviceLinkRepositoryMock) Get(deviceID string) *voter.DeviceLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Links[deviceID]
}

// EmailAddressRepositoryMock keeps email records in memory and lists them by created_at, then id.
type EmailAddressRepositoryMock struct {
	mu          sync.Mutex
	Emails      map[uuid.UUID]*email.EmailAddress
	DeleteCalls []uuid.UUID
	CreateFn    func(ctx context.Context, e *email.EmailAddress) error
	UpdateFn    func(ctx context.Context, e *email.EmailAddress) error
	DeleteFn    func(ctx context.Context, id uuid.UUID) error
	ListFn      func(ctx context.Context, voterID uuid.UUID) ([]*email.EmailAddress, error)
}

func NewEmailAddressRepositoryMock(emails ...*email.EmailAddress) *EmailAddressRepositoryMock {
	m := &EmailAddressRepositoryMock{Emails: make(map[uuid.UUID]*email.EmailAddress)}
	for _, e := range emails {
		cp := *e
		m.Emails[e.ID] = &cp
	}
	return m
}

func (m *EmailAddressRepositoryMock) filter(keep func(*email.EmailAddress) bool) []*email.EmailAddress {
	out := make([]*email.EmailAddress, 0)
	for _, e := range m.Emails {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *EmailAddressRepositoryMock) Create(ctx context.Context, e *email.EmailAddress) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	m.Emails[e.ID] = &cp
	return nil
}

func (m *EmailAddressRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*email.EmailAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Emails[id]
	if !ok {
		return nil, email.ErrEmailNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *EmailAddressRepositoryMock) GetBySecretKey(ctx context.Context, secretKey string) (*email.EmailAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.filter(func(e *email.EmailAddress) bool { return e.Secret() != "" && e.Secret() == secretKey })
	if len(found) == 0 {
		return nil, email.ErrEmailNotFound
	}
	return found[0], nil
}

func (m *EmailAddressRepositoryMock) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]*email.EmailAddress, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, voterID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(e *email.EmailAddress) bool { return e.VoterID == voterID }), nil
}

func (m *EmailAddressRepositoryMock) ListByText(ctx context.Context, normalized string) ([]*email.EmailAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(e *email.EmailAddress) bool { return strings.EqualFold(e.NormalizedEmailAddress, normalized) }), nil
}

func (m *EmailAddressRepositoryMock) ListVerifiedByTexts(ctx context.Context, texts []string) ([]*email.EmailAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		want[strings.ToLower(t)] = struct{}{}
	}
	return m.filter(func(e *email.EmailAddress) bool {
		_, ok := want[strings.ToLower(e.NormalizedEmailAddress)]
		return ok && e.EmailOwnershipIsVerified
	}), nil
}

func (m *EmailAddressRepositoryMock) Update(ctx context.Context, e *email.EmailAddress) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Emails[e.ID]; !ok {
		return email.ErrEmailNotFound
	}
	cp := *e
	m.Emails[e.ID] = &cp
	return nil
}

func (m *EmailAddressRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Emails[id]; !ok {
		return email.ErrEmailNotFound
	}
	delete(m.Emails, id)
	return nil
}

func (m *EmailAddressRepositoryMock) Get(id uuid.UUID) *email.EmailAddress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Emails[id]
}

func (m *EmailAddressRepositoryMock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}

// OutboundRepositoryMock records outbound writes.
type OutboundRepositoryMock struct {
	mu                  sync.Mutex
	Descriptions        []*email.OutboundDescription
	Scheduled           []*email.Scheduled
	Reassigned          map[ports.OutboundTarget]int
	CreateDescriptionFn func(ctx context.Context, d *email.OutboundDescription) error
	CreateScheduledFn   func(ctx context.Context, s *email.Scheduled) error
	ReassignVoterFn     func(ctx context.Context, target ports.OutboundTarget, from, to uuid.UUID) (int64, error)
}

func (m *OutboundRepositoryMock) CreateDescription(ctx context.Context, d *email.OutboundDescription) error {
	if m.CreateDescriptionFn != nil {
		return m.CreateDescriptionFn(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Descriptions = append(m.Descriptions, d)
	return nil
}

func (m *OutboundRepositoryMock) CreateScheduled(ctx context.Context, s *email.Scheduled) error {
	if m.CreateScheduledFn != nil {
		return m.CreateScheduledFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled = append(m.Scheduled, s)
	return nil
}

func (m *OutboundRepositoryMock) UpdateScheduledStatus(ctx context.Context, id uuid.UUID, status email.SendStatus, sentAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Scheduled {
		if s.ID == id {
			s.SendStatus = status
			if sentAt != nil {
				s.SentAt = sentAt
			}
			return nil
		}
	}
	return fmt.Errorf("scheduled email %s not found", id)
}

func (m *OutboundRepositoryMock) ListScheduledBySender(ctx context.Context, senderID uuid.UUID, status email.SendStatus) ([]*email.Scheduled, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*email.Scheduled
	for _, s := range m.Scheduled {
		if s.SenderVoterID == senderID && s.SendStatus == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *OutboundRepositoryMock) ReassignVoter(ctx context.Context, target ports.OutboundTarget, from, to uuid.UUID) (int64, error) {
	if m.ReassignVoterFn != nil {
		return m.ReassignVoterFn(ctx, target, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Reassigned == nil {
		m.Reassigned = make(map[ports.OutboundTarget]int)
	}
	m.Reassigned[target]++
	return 0, nil
}

// ContactEmailRepositoryMock keeps contacts and the verification cache in memory.
type ContactEmailRepositoryMock struct {
	mu              sync.Mutex
	Contacts        []*email.VoterContactEmail
	Augmented       map[string]*email.ContactEmailAugmented
	SaveAugmentedFn func(ctx context.Context, a *email.ContactEmailAugmented) error
}

func (m *ContactEmailRepositoryMock) ListByImporter(ctx context.Context, importerID uuid.UUID) ([]*email.VoterContactEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*email.VoterContactEmail
	for _, c := range m.Contacts {
		if c.ImporterVoterID == importerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *ContactEmailRepositoryMock) ListAugmented(ctx context.Context, texts []string) ([]*email.ContactEmailAugmented, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*email.ContactEmailAugmented
	for _, t := range texts {
		if a, ok := m.Augmented[t]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *ContactEmailRepositoryMock) EnsureAugmented(ctx context.Context, texts []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Augmented == nil {
		m.Augmented = make(map[string]*email.ContactEmailAugmented)
	}
	created := 0
	for _, t := range texts {
		if _, ok := m.Augmented[t]; !ok {
			m.Augmented[t] = &email.ContactEmailAugmented{EmailAddressText: t}
			created++
		}
	}
	return created, nil
}

func (m *ContactEmailRepositoryMock) SaveAugmented(ctx context.Context, a *email.ContactEmailAugmented) error {
	if m.SaveAugmentedFn != nil {
		return m.SaveAugmentedFn(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Augmented == nil {
		m.Augmented = make(map[string]*email.ContactEmailAugmented)
	}
	cp := *a
	m.Augmented[a.EmailAddressText] = &cp
	return nil
}

func (m *ContactEmailRepositoryMock) SetContactsInvalid(ctx context.Context, text string, invalid bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.Contacts {
		if strings.EqualFold(c.EmailAddressText, text) {
			c.IsInvalid = invalid
			n++
		}
	}
	return n, nil
}

func (m *ContactEmailRepositoryMock) LinkContactsToVoter(ctx context.Context, text string, voterID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.Contacts {
		if strings.EqualFold(c.EmailAddressText, text) {
			id := voterID
			c.VoterID = &id
			n++
		}
	}
	return n, nil
}

// EmailVerifierMock answers with VerifyFn and counts calls.
type EmailVerifierMock struct {
	mu       sync.Mutex
	Calls    int
	Seen     []string
	VerifyFn func(ctx context.Context, address string) email.VerificationResult
}

func (m *EmailVerifierMock) Verify(ctx context.Context, address string) email.VerificationResult {
	m.mu.Lock()
	m.Calls++
	m.Seen = append(m.Seen, address)
	m.mu.Unlock()
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, address)
	}
	return email.Found("Valid")
}

func (m *EmailVerifierMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// APIUsageCounterMock sums recorded usage per kind.
type APIUsageCounterMock struct {
	mu     sync.Mutex
	Totals map[string]int64
}

func (m *APIUsageCounterMock) Record(ctx context.Context, kind string, count int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Totals == nil {
		m.Totals = make(map[string]int64)
	}
	m.Totals[kind] += int64(count)
	return m.Totals[kind], nil
}

func (m *APIUsageCounterMock) Total(ctx context.Context, kind string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Totals[kind], nil
}

// TemplateRendererMock renders "subject|variables" unless RenderFn is set.
type TemplateRendererMock struct {
	RenderFn func(kind email.TemplateKind, variablesJSON string) (*email.RenderedEmail, error)
}

func (m *TemplateRendererMock) Render(kind email.TemplateKind, variablesJSON string) (*email.RenderedEmail, error) {
	if m.RenderFn != nil {
		return m.RenderFn(kind, variablesJSON)
	}
	return &email.RenderedEmail{Subject: kind.String(), Text: variablesJSON, HTML: "<p>" + variablesJSON + "</p>"}, nil
}

// EmailDeliveryMock records sent emails.
type EmailDeliveryMock struct {
	mu     sync.Mutex
	Sent   []*email.Scheduled
	SendFn func(ctx context.Context, s *email.Scheduled) (bool, error)
}

func (m *EmailDeliveryMock) SendScheduledEmail(ctx context.Context, s *email.Scheduled) (bool, error) {
	if m.SendFn != nil {
		return m.SendFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, s)
	return true, nil
}

// EmailDispatchServiceMock records each flow request.
type EmailDispatchServiceMock struct {
	mu            sync.Mutex
	Verifications []*ports.VerificationEmailRequest
	SignInLinks   []*ports.SignInLinkRequest
	SignInCodes   []*ports.SignInCodeRequest
	HeldReleased  []uuid.UUID
	Fail          bool
}

func (m *EmailDispatchServiceMock) result() *email.DispatchResult {
	if m.Fail {
		return &email.DispatchResult{Status: "DISPATCH_FAILED"}
	}
	return &email.DispatchResult{Status: "DISPATCHED", Success: true, Scheduled: true, Sent: true}
}

func (m *EmailDispatchServiceMock) ScheduleWithDescription(ctx context.Context, d *email.OutboundDescription, status email.SendStatus) *email.ScheduleResult {
	return &email.ScheduleResult{Status: "EMAIL_SCHEDULED", Success: !m.Fail, Saved: !m.Fail}
}

func (m *EmailDispatchServiceMock) SendVerificationEmail(ctx context.Context, req *ports.VerificationEmailRequest) *email.DispatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Verifications = append(m.Verifications, req)
	return m.result()
}

func (m *EmailDispatchServiceMock) SendLinkToSignIn(ctx context.Context, req *ports.SignInLinkRequest) *email.DispatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignInLinks = append(m.SignInLinks, req)
	return m.result()
}

func (m *EmailDispatchServiceMock) SendSignInCode(ctx context.Context, req *ports.SignInCodeRequest) *email.DispatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignInCodes = append(m.SignInCodes, req)
	return m.result()
}

func (m *EmailDispatchServiceMock) SendHeldEmails(ctx context.Context, senderID uuid.UUID) *email.DispatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeldReleased = append(m.HeldReleased, senderID)
	return &email.DispatchResult{Status: "HELD_EMAILS_SENT_0_OF_0", Success: true}
}

// RequestLimiterMock allows requests until Remaining reaches zero.
type RequestLimiterMock struct {
	AllowFn func(ctx context.Context, subject string) (bool, int, int, time.Time, error)
}

func (m *RequestLimiterMock) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, subject)
	}
	return true, 10, 10, time.Now().Add(time.Minute), nil
}

type VoterEmailServiceMock struct {
	RetrieveFn func(ctx context.Context, deviceID string) *email.RetrieveResult
	SignInFn   func(ctx context.Context, deviceID, secretKey string) *email.SignInResult
	VerifyFn   func(ctx context.Context, deviceID, secretKey string) *email.VerifyResult
	SaveFn     func(ctx context.Context, req *email.SaveRequest) *email.SaveResult
}

func (m *VoterEmailServiceMock) RetrieveEmailAddresses(ctx context.Context, deviceID string) *email.RetrieveResult {
	if m.RetrieveFn != nil {
		return m.RetrieveFn(ctx, deviceID)
	}
	return &email.RetrieveResult{DeviceID: deviceID, Success: true}
}

func (m *VoterEmailServiceMock) SignInWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.SignInResult {
	if m.SignInFn != nil {
		return m.SignInFn(ctx, deviceID, secretKey)
	}
	return &email.SignInResult{DeviceID: deviceID}
}

func (m *VoterEmailServiceMock) VerifyEmailWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.VerifyResult {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, deviceID, secretKey)
	}
	return &email.VerifyResult{DeviceID: deviceID}
}

func (m *VoterEmailServiceMock) SaveEmailAddress(ctx context.Context, req *email.SaveRequest) *email.SaveResult {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, req)
	}
	return &email.SaveResult{DeviceID: req.DeviceID, EmailText: req.EmailText}
}

// EmailReconcilerMock only scripts the voter-level operations used by the admin routes.
type EmailReconcilerMock struct {
	ports.EmailReconciler
	MoveFn func(ctx context.Context, fromID, toID uuid.UUID) (*email.MoveResult, error)
}

func (m *EmailReconcilerMock) MoveAddressesToVoter(ctx context.Context, fromID, toID uuid.UUID) (*email.MoveResult, error) {
	if m.MoveFn != nil {
		return m.MoveFn(ctx, fromID, toID)
	}
	return &email.MoveResult{Success: true, FromID: fromID, ToID: toID}, nil
}

type EmailVerificationServiceMock struct {
	ports.EmailVerificationService
	RunFn func(ctx context.Context, importerID uuid.UUID) (*email.VerificationRunResult, error)
}

func (m *EmailVerificationServiceMock) AugmentContactsWithVerification(ctx context.Context, importerID uuid.UUID) (*email.VerificationRunResult, error) {
	if m.RunFn != nil {
		return m.RunFn(ctx, importerID)
	}
	return &email.VerificationRunResult{Success: true}, nil
}

type ContactAugmentationServiceMock struct {
	RunFn func(ctx context.Context, importerID uuid.UUID) (*email.ContactAugmentResult, error)
}

func (m *ContactAugmentationServiceMock) AugmentContactsWithVoterData(ctx context.Context, importerID uuid.UUID) (*email.ContactAugmentResult, error) {
	if m.RunFn != nil {
		return m.RunFn(ctx, importerID)
	}
	return &email.ContactAugmentResult{Success: true}, nil
}

// AuditServiceMock keeps logged actions in memory.
type AuditServiceMock struct {
	mu      sync.Mutex
	Entries []*audit.CreateAuditLogRequest
	LogFn   func(ctx context.Context, req *audit.CreateAuditLogRequest) error
}

func (m *AuditServiceMock) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	if m.LogFn != nil {
		return m.LogFn(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, req)
	return nil
}

func (m *AuditServiceMock) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.AuditLog
	for _, e := range m.Entries {
		if filter != nil && filter.VoterID != nil && (e.VoterID == nil || *e.VoterID != *filter.VoterID) {
			continue
		}
		out = append(out, &audit.AuditLog{VoterID: e.VoterID, Action: string(e.Action), Resource: string(e.Resource), ResourceID: e.ResourceID, Details: e.Details})
	}
	return out, len(out), nil
}

var (
	_ ports.VoterRepository            = (*VoterRepositoryMock)(nil)
	_ ports.DeviceLinkRepository       = (*DeviceLinkRepositoryMock)(nil)
	_ ports.EmailAddressRepository     = (*EmailAddressRepositoryMock)(nil)
	_ ports.OutboundRepository         = (*OutboundRepositoryMock)(nil)
	_ ports.ContactEmailRepository     = (*ContactEmailRepositoryMock)(nil)
	_ ports.EmailVerifier              = (*EmailVerifierMock)(nil)
	_ ports.APIUsageCounter            = (*APIUsageCounterMock)(nil)
	_ ports.TemplateRenderer           = (*TemplateRendererMock)(nil)
	_ ports.EmailDelivery              = (*EmailDeliveryMock)(nil)
	_ ports.EmailDispatchService       = (*EmailDispatchServiceMock)(nil)
	_ ports.RequestLimiter             = (*RequestLimiterMock)(nil)
	_ ports.VoterEmailService          = (*VoterEmailServiceMock)(nil)
	_ ports.EmailReconciler            = (*EmailReconcilerMock)(nil)
	_ ports.EmailVerificationService   = (*EmailVerificationServiceMock)(nil)
	_ ports.ContactAugmentationService = (*ContactAugmentationServiceMock)(nil)
	_ ports.AuditService               = (*AuditServiceMock)(nil)
)
