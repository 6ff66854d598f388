package bootstrap

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/internal/booking"
	appconfig "github.com/wolfman30/consultation-booking/internal/config"
	"github.com/wolfman30/consultation-booking/internal/consultations"
	"github.com/wolfman30/consultation-booking/internal/notify"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

var fixedNow = time.Date(2025, 6, 10, 10, 20, 0, 0, time.UTC)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		BookingTimezone:  "UTC",
		BookingOpenHour:  9,
		BookingCloseHour: 17,
		SlotStep:         15 * time.Minute,
		BookingBuffer:    15 * time.Minute,
		DuplicateWindow:  5 * time.Minute,
		SubmitLockTTL:    30 * time.Second,
	}
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, logging.Discard(), true))
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.Discard(), true))
}

func TestConnectPostgresEmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, ConnectPostgres(context.Background(), " ", logging.Discard()))
}

func TestBuildInMemoryRuntime(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.AttachmentsBucket = "booking-docs"
	s3api := &fakeS3{}
	reg := prometheus.NewRegistry()

	rt := Build(cfg, logging.Discard(), Deps{
		Registerer: reg,
		Redis:      client,
		S3:         s3api,
		Now:        func() time.Time { return fixedNow },
	})
	require.NotNil(t, rt.Service)
	assert.IsType(t, &consultations.InMemoryRepository{}, rt.Repository)
	assert.IsType(t, &notify.StubEmailSender{}, rt.Email)
	assert.True(t, rt.Attachments.Enabled())

	res, err := rt.Service.Submit(context.Background(), consultations.SubmitRequest{
		PackageKey:   "30-min",
		SelectedDate: "2025-06-11",
		SelectedTime: "09:00",
		Form: booking.FormData{
			Name:          "Asha Rao",
			Email:         "asha@example.com",
			Phone:         "9876543210",
			Topic:         "GST registration",
			TermsAccepted: true,
			Attachments:   []booking.Attachment{{Filename: "pan.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, consultations.StatusPending, res.Booking.Status)
	require.Len(t, res.Booking.Documents, 1)
	assert.Len(t, s3api.objects, 1)

	count, err := testutil.GatherAndCount(reg, "consultation_booking_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, mr.Keys(), "submission lock is released after the booking is stored")
}

func TestBuildWithoutBucketSkipsAttachmentStore(t *testing.T) {
	rt := Build(testConfig(), logging.Discard(), Deps{Registerer: prometheus.NewRegistry()})
	assert.False(t, rt.Attachments.Enabled())
}

func TestBuildSelectsConfiguredEmailProvider(t *testing.T) {
	cfg := testConfig()
	cfg.EmailProvider = "sendgrid"
	cfg.SendGridAPIKey = "key"
	cfg.SendGridFromEmail = "bookings@example.com"

	rt := Build(cfg, logging.Discard(), Deps{Registerer: prometheus.NewRegistry()})
	assert.IsType(t, &notify.SendGridSender{}, rt.Email)
}
