package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/wavesplatform/push-notifications/internal/model"
	"github.com/wavesplatform/push-notifications/internal/storage"
)

const testAddress = "3Q6pToUA28zJbMJUfB5xoGgfqqni11H7NPq"

type fakeStore struct {
	devices       map[string]model.Device
	subscriptions map[string][]string
	subscribed    []storage.SubscriptionRequest
	unsubscribed  []string
	subscribeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices:       make(map[string]model.Device),
		subscriptions: make(map[string][]string),
	}
}

func (f *fakeStore) key(address model.Address, fcmUID string) string {
	return address.String() + "/" + fcmUID
}

func (f *fakeStore) RegisterDevice(_ context.Context, address model.Address, fcmUID, language string, utcOffsetSeconds int) error {
	if err := model.ValidateUTCOffset(utcOffsetSeconds); err != nil {
		return err
	}
	f.devices[f.key(address, fcmUID)] = model.Device{
		Address: address, FcmUID: fcmUID, Language: language, UTCOffsetSeconds: utcOffsetSeconds,
	}
	return nil
}

func (f *fakeStore) UpdateDevice(_ context.Context, address model.Address, fcmUID string, upd storage.DeviceUpdate) error {
	dev, ok := f.devices[f.key(address, fcmUID)]
	if !ok {
		return storage.ErrDeviceNotFound
	}
	if upd.Language != nil {
		dev.Language = *upd.Language
	}
	if upd.UTCOffsetSeconds != nil {
		if err := model.ValidateUTCOffset(*upd.UTCOffsetSeconds); err != nil {
			return err
		}
		dev.UTCOffsetSeconds = *upd.UTCOffsetSeconds
	}
	f.devices[f.key(address, fcmUID)] = dev
	return nil
}

func (f *fakeStore) UnregisterDevice(_ context.Context, address model.Address, fcmUID string) error {
	delete(f.devices, f.key(address, fcmUID))
	return nil
}

func (f *fakeStore) DeviceExists(_ context.Context, address model.Address, fcmUID string) (bool, error) {
	_, ok := f.devices[f.key(address, fcmUID)]
	return ok, nil
}

func (f *fakeStore) Subscribe(_ context.Context, address model.Address, reqs []storage.SubscriptionRequest, _ int) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, reqs...)
	for _, req := range reqs {
		f.subscriptions[address.String()] = append(f.subscriptions[address.String()], req.TopicURL)
	}
	return nil
}

func (f *fakeStore) Unsubscribe(_ context.Context, address model.Address, topics []string) error {
	if topics == nil {
		f.subscriptions[address.String()] = nil
		f.unsubscribed = append(f.unsubscribed, "*")
		return nil
	}
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeStore) Subscriptions(_ context.Context, address model.Address) ([]string, error) {
	return f.subscriptions[address.String()], nil
}

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(store, nil, 50).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authHeaders() map[string]string {
	return map[string]string{
		"X-User-Address": testAddress,
		"X-Fcm-Uid":      "token-a",
	}
}

func TestRegisterDevice(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPut, "/device", `{"language": "ru", "utc_offset_seconds": 10800}`, authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	dev, ok := store.devices[testAddress+"/token-a"]
	if !ok {
		t.Fatal("device not stored")
	}
	if dev.Language != "ru" || dev.UTCOffsetSeconds != 10800 {
		t.Errorf("stored device = %+v", dev)
	}
}

func TestRegisterDeviceInvalidOffset(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPut, "/device", `{"utc_offset_seconds": 99999}`, authHeaders())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterDeviceBadAddress(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPut, "/device", "", map[string]string{
		"X-User-Address": "not-an-address",
		"X-Fcm-Uid":      "token-a",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateDeviceNotFound(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPatch, "/device", `{"language": "de"}`, authHeaders())
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateDevice(t *testing.T) {
	store := newFakeStore()
	store.RegisterDevice(context.Background(), model.Address(testAddress), "token-a", "en", 0)
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPatch, "/device", `{"language": "de"}`, authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.devices[testAddress+"/token-a"].Language != "de" {
		t.Errorf("language not updated: %+v", store.devices)
	}
}

func TestSubscribeRequiresDevice(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPost, "/topics", `{"topics": ["push://orders"]}`, authHeaders())
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSubscribe(t *testing.T) {
	store := newFakeStore()
	store.RegisterDevice(context.Background(), model.Address(testAddress), "token-a", "en", 0)
	r := newTestRouter(store)

	body := `{"topics": ["push://orders?oneshot", "push://price_threshold/WAVES/GwT5y18jcrrppAuj5VkfnHLG8WRf3TNzmhREQkY4pzd8/2.5"]}`
	w := doRequest(t, r, http.MethodPost, "/topics", body, authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(store.subscribed) != 2 {
		t.Fatalf("subscribed %d topics, want 2", len(store.subscribed))
	}
	if store.subscribed[0].Mode != model.ModeOnce {
		t.Errorf("first subscription mode = %v, want once", store.subscribed[0].Mode)
	}
	if store.subscribed[1].Topic.Type != model.TopicPriceThreshold {
		t.Errorf("second subscription type = %v", store.subscribed[1].Topic.Type)
	}
}

func TestSubscribeInvalidTopic(t *testing.T) {
	store := newFakeStore()
	store.RegisterDevice(context.Background(), model.Address(testAddress), "token-a", "en", 0)
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPost, "/topics", `{"topics": ["http://orders"]}`, authHeaders())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad error body: %v", err)
	}
	if resp["code"] != "INVALID_TOPIC" {
		t.Errorf("code = %q", resp["code"])
	}
}

func TestSubscribeQuotaExceeded(t *testing.T) {
	store := newFakeStore()
	store.RegisterDevice(context.Background(), model.Address(testAddress), "token-a", "en", 0)
	store.subscribeErr = storage.ErrQuotaExceeded
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPost, "/topics", `{"topics": ["push://orders"]}`, authHeaders())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "QUOTA_EXCEEDED" {
		t.Errorf("code = %q", resp["code"])
	}
}

func TestListTopics(t *testing.T) {
	store := newFakeStore()
	store.subscriptions[testAddress] = []string{"push://orders"}
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodGet, "/topics", "", authHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp topicsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp.Topics) != 1 || resp.Topics[0] != "push://orders" {
		t.Errorf("topics = %v", resp.Topics)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	store := newFakeStore()
	store.subscriptions[testAddress] = []string{"push://orders"}
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodDelete, "/topics", "", authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(store.unsubscribed) != 1 || store.unsubscribed[0] != "*" {
		t.Errorf("unsubscribed = %v, want wildcard", store.unsubscribed)
	}
}

func TestUnsubscribeSpecificRemovesBothModes(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodDelete, "/topics", `{"topics": ["push://orders"]}`, authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(store.unsubscribed) != 2 {
		t.Fatalf("unsubscribed = %v, want both mode variants", store.unsubscribed)
	}
}

func TestUnregisterDevice(t *testing.T) {
	store := newFakeStore()
	store.RegisterDevice(context.Background(), model.Address(testAddress), "token-a", "en", 0)
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodDelete, "/device", "", authHeaders())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.devices) != 0 {
		t.Errorf("device still stored: %v", store.devices)
	}
}
