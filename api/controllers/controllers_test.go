package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/internal/notify"
	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/internal/session"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeDeliveries struct {
	current   *deliveries.Delivery
	refreshed *deliveries.Delivery
	err       error

	started    string
	delivered  *deliveries.DeliverInput
	partial    *deliveries.PartialDeliverInput
	failed     *deliveries.FailInput
	postponed  *deliveries.PostponeInput
	refreshes  int
	moneyOrder string
}

func (f *fakeDeliveries) Refresh(context.Context) (*deliveries.Delivery, error) {
	f.refreshes++
	if f.err != nil {
		return nil, f.err
	}
	f.current = f.refreshed
	return f.refreshed, nil
}

func (f *fakeDeliveries) Current() *deliveries.Delivery { return f.current }

func (f *fakeDeliveries) History(context.Context) ([]deliveries.Delivery, error) {
	return []deliveries.Delivery{{ID: "d0", Status: enums.DeliveryStatusCompleted}}, nil
}

func (f *fakeDeliveries) Start(_ context.Context, id string) (*deliveries.Delivery, error) {
	f.started = id
	return &deliveries.Delivery{ID: id, Status: enums.DeliveryStatusInProgress}, f.err
}

func (f *fakeDeliveries) Complete(_ context.Context, id string) (*deliveries.Delivery, error) {
	return &deliveries.Delivery{ID: id, Status: enums.DeliveryStatusCompleted}, f.err
}

func (f *fakeDeliveries) Deliver(_ context.Context, in deliveries.DeliverInput) (*deliveries.Delivery, error) {
	f.delivered = &in
	return f.current, f.err
}

func (f *fakeDeliveries) PartialDeliver(_ context.Context, in deliveries.PartialDeliverInput) (*deliveries.Delivery, error) {
	f.partial = &in
	return f.current, f.err
}

func (f *fakeDeliveries) Fail(_ context.Context, in deliveries.FailInput) (*deliveries.Delivery, error) {
	f.failed = &in
	return f.current, f.err
}

func (f *fakeDeliveries) Postpone(_ context.Context, in deliveries.PostponeInput) (*deliveries.Delivery, error) {
	f.postponed = &in
	return f.current, f.err
}

func (f *fakeDeliveries) Money(orderID string, oldDebt, collected *decimal.Decimal) (deliveries.Reconciliation, error) {
	f.moneyOrder = orderID
	out := deliveries.Reconciliation{}
	if oldDebt != nil {
		out.OldDebt = *oldDebt
	}
	if collected != nil {
		out.AmountCollected = *collected
	}
	return out, nil
}

type fakeProximity struct {
	skipped map[string]bool
	latest  []proximity.StoreProximity
}

func (f *fakeProximity) Latest() []proximity.StoreProximity { return f.latest }
func (f *fakeProximity) Skip(id string)                    { f.skipped[id] = true }
func (f *fakeProximity) Unskip(id string)                  { delete(f.skipped, id) }
func (f *fakeProximity) IsSkipped(id string) bool          { return f.skipped[id] }

type fakeTracker struct {
	running bool
	allow   bool
	last    *location.Sample
}

func (f *fakeTracker) Start(context.Context) bool {
	f.running = f.allow
	return f.running
}
func (f *fakeTracker) Stop()         { f.running = false }
func (f *fakeTracker) Running() bool { return f.running }
func (f *fakeTracker) LastSample() (location.Sample, bool) {
	if f.last == nil {
		return location.Sample{}, false
	}
	return *f.last, true
}
func (f *fakeTracker) SpeedKmh(s location.Sample) float64 {
	return location.DefaultSpeedFilter().Kmh(s)
}

type fakeSessions struct {
	current *session.Session
	email   string
	logout  bool
}

func (f *fakeSessions) Login(_ context.Context, email, _ string) (*session.Session, error) {
	f.email = email
	f.current = &session.Session{Token: "secret", User: session.User{Email: email}}
	return f.current, nil
}

func (f *fakeSessions) Logout(context.Context) error {
	f.logout = true
	f.current = nil
	return nil
}

func (f *fakeSessions) Current(context.Context) (*session.Session, error) { return f.current, nil }

func activeRun() *deliveries.Delivery {
	return &deliveries.Delivery{
		ID:     "d1",
		Status: enums.DeliveryStatusInProgress,
		Orders: []deliveries.Order{
			{ID: "o1", Status: enums.OrderStatusPending, Client: deliveries.Client{Name: "Alpha"}},
			{ID: "o2", Status: enums.OrderStatusDelivered, Client: deliveries.Client{Name: "Beta"}},
		},
	}
}

func withOrderID(req *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code     string `json:"code"`
			Category string `json:"category"`
			Message  string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code, env.Error.Message
}

func TestDeliveryStartUsesActiveRunWhenBodyEmpty(t *testing.T) {
	svc := &fakeDeliveries{refreshed: activeRun()}
	resp := httptest.NewRecorder()
	DeliveryStart(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/delivery/start", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.started != "d1" {
		t.Fatalf("expected start for d1 got %q", svc.started)
	}
	if svc.refreshes != 1 {
		t.Fatalf("expected one refresh got %d", svc.refreshes)
	}
}

func TestDeliveryStartWithoutActiveRun(t *testing.T) {
	svc := &fakeDeliveries{}
	resp := httptest.NewRecorder()
	DeliveryStart(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/delivery/start", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if svc.started != "" {
		t.Fatalf("start should not be called")
	}
}

func TestDeliveryStartNilService(t *testing.T) {
	resp := httptest.NewRecorder()
	DeliveryStart(nil, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/delivery/start", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestDeliveryCompletePassesStateConflict(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun(), err: pkgerrors.New(pkgerrors.CodeStateConflict, "orders still pending")}
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/delivery/complete", map[string]string{"delivery_id": "d1"})
	DeliveryComplete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if _, msg := decodeError(t, resp); msg != "orders still pending" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestOrderDeliverForwardsAmount(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	req := withOrderID(jsonRequest(http.MethodPost, "/api/v1/orders/o1/deliver", map[string]any{"amount_collected": 120.5}), "o1")
	OrderDeliver(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.delivered == nil || svc.delivered.DeliveryID != "d1" || svc.delivered.OrderID != "o1" {
		t.Fatalf("unexpected deliver input %+v", svc.delivered)
	}
	if svc.delivered.AmountCollected == nil || !svc.delivered.AmountCollected.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("unexpected amount %v", svc.delivered.AmountCollected)
	}
}

func TestOrderDeliverWithoutBodyCollectsFullAmount(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	OrderDeliver(svc, testLogger())(resp, withOrderID(httptest.NewRequest(http.MethodPost, "/api/v1/orders/o1/deliver", nil), "o1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.delivered.AmountCollected != nil {
		t.Fatalf("expected nil amount got %v", svc.delivered.AmountCollected)
	}
}

func TestOrderPartialValidatesItems(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	req := withOrderID(jsonRequest(http.MethodPost, "/api/v1/orders/o1/partial", map[string]any{
		"items": []map[string]any{{"quantity_delivered": 1}},
	}), "o1")
	OrderPartial(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.partial != nil {
		t.Fatalf("service should not be called")
	}
}

func TestOrderPartialTrimsAndForwards(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	req := withOrderID(jsonRequest(http.MethodPost, "/api/v1/orders/o1/partial", map[string]any{
		"items": []map[string]any{{
			"product_id":         " p1 ",
			"quantity_delivered": 3,
			"quantity_returned":  2,
			"return_reason":      "  damaged  ",
		}},
	}), "o1")
	OrderPartial(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	got := svc.partial.Items[0]
	if got.ProductID != "p1" || got.ReturnReason != "damaged" || got.QuantityReturned != 2 {
		t.Fatalf("unexpected item %+v", got)
	}
}

func TestOrderFailRequiresReason(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	req := withOrderID(jsonRequest(http.MethodPost, "/api/v1/orders/o1/fail", map[string]any{}), "o1")
	OrderFail(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code, _ := decodeError(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestOrderPostponeForwardsNotes(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	resp := httptest.NewRecorder()
	req := withOrderID(jsonRequest(http.MethodPost, "/api/v1/orders/o1/postpone", map[string]string{"notes": "closed"}), "o1")
	OrderPostpone(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.postponed.Notes != "closed" {
		t.Fatalf("unexpected notes %q", svc.postponed.Notes)
	}
}

func TestOrderSkipAndUnskip(t *testing.T) {
	prox := &fakeProximity{skipped: map[string]bool{}}
	resp := httptest.NewRecorder()
	OrderSkip(prox, testLogger())(resp, withOrderID(httptest.NewRequest(http.MethodPost, "/api/v1/orders/o1/skip", nil), "o1"))
	if resp.Code != http.StatusOK || !prox.IsSkipped("o1") {
		t.Fatalf("expected o1 skipped, code %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	OrderUnskip(prox, testLogger())(resp, withOrderID(httptest.NewRequest(http.MethodPost, "/api/v1/orders/o1/unskip", nil), "o1"))
	if resp.Code != http.StatusOK || prox.IsSkipped("o1") {
		t.Fatalf("expected o1 unskipped, code %d", resp.Code)
	}
}

func TestOrderMoneyParsesQuery(t *testing.T) {
	svc := &fakeDeliveries{}
	resp := httptest.NewRecorder()
	req := withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/o1/money?old_debt=50&amount_collected=30", nil), "o1")
	OrderMoney(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var env struct {
		Data deliveries.Reconciliation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.OldDebt.Equal(decimal.NewFromInt(50)) || !env.Data.AmountCollected.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected reconciliation %+v", env.Data)
	}

	resp = httptest.NewRecorder()
	req = withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/o1/money?old_debt=abc", nil), "o1")
	OrderMoney(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad decimal got %d", resp.Code)
	}
}

func TestWorklistSplitsPendingAndHandled(t *testing.T) {
	svc := &fakeDeliveries{current: activeRun()}
	prox := &fakeProximity{skipped: map[string]bool{}}
	resp := httptest.NewRecorder()
	Worklist(svc, prox, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/worklist", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var env struct {
		Data deliveries.Worklist `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Pending) != 1 || len(env.Data.Handled) != 1 {
		t.Fatalf("unexpected split %+v", env.Data)
	}
	if svc.refreshes != 0 {
		t.Fatalf("cached run should not refresh")
	}
}

func TestLocationSampleValidatesCoordinates(t *testing.T) {
	source := location.NewChannelSource(4)
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/location/samples", map[string]any{"latitude": 91, "longitude": 2})
	LocationSample(source, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLocationSampleForwardsToSubscriber(t *testing.T) {
	source := location.NewChannelSource(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := source.Subscribe(ctx, location.StreamOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/location/samples", map[string]any{"latitude": 40.4, "longitude": -3.7, "speed": 4, "accuracy": 5})
	LocationSample(source, testLogger())(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
	update := <-updates
	if update.Sample.Latitude != 40.4 || update.Sample.RawSpeed != 4 || update.Sample.Timestamp.IsZero() {
		t.Fatalf("unexpected sample %+v", update.Sample)
	}
}

func TestLocationSampleNotAcceptedWhileStopped(t *testing.T) {
	source := location.NewChannelSource(4)
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/location/samples", map[string]any{"latitude": 40.4, "longitude": -3.7})
	LocationSample(source, testLogger())(resp, req)

	var env struct {
		Data sampleResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Accepted {
		t.Fatalf("sample should not be accepted without a subscriber")
	}
}

func TestLocationLast(t *testing.T) {
	tracker := &fakeTracker{}
	resp := httptest.NewRecorder()
	LocationLast(tracker, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/location/last", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	tracker.last = &location.Sample{Latitude: 1, Longitude: 2, RawSpeed: 10, Accuracy: 5}
	resp = httptest.NewRecorder()
	LocationLast(tracker, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/location/last", nil))
	var env struct {
		Data lastSampleResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.SpeedKmh != 36 {
		t.Fatalf("expected 36 km/h got %v", env.Data.SpeedKmh)
	}
}

func TestTrackingStartAppliesPermission(t *testing.T) {
	perms := location.NewPermissionFlag(true)
	tracker := &fakeTracker{allow: true}
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/tracking/start", map[string]bool{"permission_granted": false})
	TrackingStart(tracker, perms, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ok, _ := perms.LocationAvailable(context.Background()); ok {
		t.Fatalf("permission flag should be cleared")
	}

	resp = httptest.NewRecorder()
	TrackingStop(tracker, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/tracking/stop", nil))
	if tracker.running {
		t.Fatalf("tracker should be stopped")
	}
}

func TestNotificationsListAndMarkRead(t *testing.T) {
	inbox := notify.NewInbox(10)
	_ = inbox.Notify(context.Background(), proximity.Notification{ID: "n1", OrderID: "o1"})
	_ = inbox.Notify(context.Background(), proximity.Notification{ID: "n2", OrderID: "o2"})

	resp := httptest.NewRecorder()
	ListNotifications(inbox, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=1", nil))
	var env struct {
		Data []notify.Item `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].ID != "n2" {
		t.Fatalf("unexpected list %+v", env.Data)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("notificationId", "missing")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/missing/read", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp = httptest.NewRecorder()
	MarkNotificationRead(inbox, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	MarkAllNotificationsRead(inbox, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil))
	if got := inbox.List(true, 0); len(got) != 0 {
		t.Fatalf("expected no unread got %d", len(got))
	}
}

func TestSessionLoginHidesToken(t *testing.T) {
	svc := &fakeSessions{}
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/session/login", map[string]string{"email": "driver@example.com", "password": "pw"})
	SessionLogin(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("secret")) {
		t.Fatalf("token leaked in response: %s", resp.Body.String())
	}
	if svc.email != "driver@example.com" {
		t.Fatalf("unexpected email %q", svc.email)
	}
}

func TestSessionLoginRejectsBadEmail(t *testing.T) {
	resp := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/session/login", map[string]string{"email": "nope", "password": "pw"})
	SessionLogin(&fakeSessions{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSessionLogoutStopsTracking(t *testing.T) {
	svc := &fakeSessions{current: &session.Session{}}
	tracker := &fakeTracker{running: true}
	resp := httptest.NewRecorder()
	SessionLogout(svc, tracker, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/session/logout", nil))

	if !svc.logout || tracker.running {
		t.Fatalf("expected logout and stopped tracker")
	}

	resp = httptest.NewRecorder()
	SessionCurrent(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
