package pushnotification

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/pushsubscription"
	"github.com/kazz187/taskboard/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskboard/pkg/storage"
)

func newSubscription(t *testing.T, id, endpoint string) *pushsubscription.Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return &pushsubscription.Subscription{
		ID:        id,
		Endpoint:  endpoint,
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
		CreatedAt: time.Now(),
	}
}

func TestSender_SendToAllRemovesGoneSubscriptions(t *testing.T) {
	var delivered atomic.Int32
	pushService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer pushService.Close()

	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(local)
	require.NoError(t, repo.Save(ctx, newSubscription(t, "01A", pushService.URL+"/alive")))
	require.NoError(t, repo.Save(ctx, newSubscription(t, "01B", pushService.URL+"/gone")))

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	sender := NewSender(&config.VAPIDEnv{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		VAPIDContact:    "mailto:test@example.com",
	}, repo, pushService.Client())

	sender.SendToAll(ctx, &NotificationPayload{Title: "Task completed", Body: "A"})

	assert.Equal(t, int32(2), delivered.Load())
	subs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "01A", subs[0].ID)
}

func TestSender_SkipsWithoutVAPIDKeys(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(local)
	require.NoError(t, repo.Save(context.Background(), newSubscription(t, "01A", "http://127.0.0.1:1/never")))

	sender := NewSender(&config.VAPIDEnv{}, repo, nil)
	assert.NotPanics(t, func() {
		sender.SendToAll(context.Background(), &NotificationPayload{Title: "x"})
	})
}
