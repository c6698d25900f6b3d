package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var pngImage = domain.Media{Data: []byte("\x89PNG fake"), MIMEType: "image/png"}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type fakeText struct {
	mu      sync.Mutex
	reply   string
	err     error
	models  []string
	prompts []string
}

func (f *fakeText) GenerateText(_ context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeText) DescribeImage(_ context.Context, model string, _ domain.Media, instruction string) (string, error) {
	return f.GenerateText(context.Background(), model, instruction)
}

type fakeImages struct {
	out        domain.Media
	err        error
	lastPrompt string
	lastAspect string
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt, aspectRatio string) (domain.Media, error) {
	f.lastPrompt, f.lastAspect = prompt, aspectRatio
	return f.out, f.err
}

func (f *fakeImages) EditImage(_ context.Context, _ domain.Media, prompt string) (domain.Media, error) {
	f.lastPrompt = prompt
	return f.out, f.err
}

// fakeVideos finishes an operation after doneAfter polls.
type fakeVideos struct {
	mu        sync.Mutex
	doneAfter int
	uri       string
	opError   string
	startErr  error
	pollErr   error
	video     domain.Media
	polls     int
	prompt    string
	aspect    string
	source    domain.Media
}

func (f *fakeVideos) StartVideo(_ context.Context, source domain.Media, prompt, aspectRatio string) (*domain.VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source, f.prompt, f.aspect = source, prompt, aspectRatio
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &domain.VideoOperation{Name: "operations/veo-1"}, nil
}

func (f *fakeVideos) PollVideo(_ context.Context, name string) (*domain.VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	op := &domain.VideoOperation{Name: name}
	if f.doneAfter > 0 && f.polls >= f.doneAfter {
		op.Done = true
		op.VideoURI = f.uri
		op.Error = f.opError
	}
	return op, nil
}

func (f *fakeVideos) FetchVideo(_ context.Context, _ string) (domain.Media, error) {
	return f.video, nil
}

func (f *fakeVideos) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

type recordingNotifier struct {
	mu            sync.Mutex
	registrations []string
	payments      []string
	videos        []string
	errors        int
}

func (n *recordingNotifier) LogError(error, string) {
	n.mu.Lock()
	n.errors++
	n.mu.Unlock()
}

func (n *recordingNotifier) LogRegistration(username string) {
	n.mu.Lock()
	n.registrations = append(n.registrations, username)
	n.mu.Unlock()
}

func (n *recordingNotifier) LogPayment(username string, amount decimal.Decimal, currency string) {
	n.mu.Lock()
	n.payments = append(n.payments, fmt.Sprintf("%s %s %s", username, amount.StringFixed(2), currency))
	n.mu.Unlock()
}

func (n *recordingNotifier) manifested() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.videos)
}

func (n *recordingNotifier) LogVideoManifested(username, starID string) {
	n.mu.Lock()
	n.videos = append(n.videos, username+"/"+starID)
	n.mu.Unlock()
}

// memoryRepo implements CreatorRepository and PaymentRepository.
type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	creators map[string]*domain.Creator
	payments map[string]*domain.Payment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{creators: map[string]*domain.Creator{}, payments: map[string]*domain.Payment{}}
}

func (r *memoryRepo) GetCreatorByUsername(_ context.Context, username string) (*domain.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creators[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepo) GetCreatorByID(_ context.Context, id int64) (*domain.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creators {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryRepo) CreateCreator(_ context.Context, username string) (*domain.Creator, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creators[username]; ok {
		cp := *c
		return &cp, false, nil
	}
	r.nextID++
	now := time.Now()
	c := &domain.Creator{ID: r.nextID, Username: username, CreatedAt: now, LastSeenAt: now}
	r.creators[username] = c
	cp := *c
	return &cp, true, nil
}

func (r *memoryRepo) TouchCreator(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creators {
		if c.ID == id {
			c.LastSeenAt = time.Now()
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memoryRepo) SetCreatorStripeCustomer(_ context.Context, id int64, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creators {
		if c.ID == id {
			c.StripeCustomerID = &customerID
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memoryRepo) CreatePayment(_ context.Context, arg repository.CreatePaymentParams) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &domain.Payment{
		ID:                int64(len(r.payments) + 1),
		CreatorID:         arg.CreatorID,
		CheckoutSessionID: arg.CheckoutSessionID,
		PriceID:           arg.PriceID,
		Status:            domain.PaymentStatusPending,
	}
	r.payments[arg.CheckoutSessionID] = p
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) GetPaymentBySession(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) UpdatePaymentStatus(_ context.Context, arg repository.UpdatePaymentStatusParams) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[arg.CheckoutSessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.Status = arg.Status
	p.Amount = arg.Amount
	p.Currency = arg.Currency
	cp := *p
	return &cp, nil
}
