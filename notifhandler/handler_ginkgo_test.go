package notifhandler

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qorix-group/lola-messaging/cmn/workpool"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/sendercache"
)

var _ = Describe("remote fan-out", func() {
	var (
		h       *Handler
		senders map[string]*fakeSender
		mu      sync.Mutex
	)

	BeforeEach(func() {
		senders = make(map[string]*fakeSender)
		factory := func(endpoint string) (mpass.Sender, error) {
			mu.Lock()
			defer mu.Unlock()
			s := &fakeSender{}
			senders[endpoint] = s
			return s, nil
		}
		cache := sendercache.New(factory, false, 10, time.Millisecond, context.Background())
		pool := workpool.New(context.Background(), 8)
		h = New(Config{LocalPID: 4444, Cache: cache, Pool: pool})
	})

	It("covers the full subscriber set across multiple batches", func() {
		e := testElement()
		const subscriberCount = 47 // > remoteFanoutBatch, forces >1 round

		for p := mpass.PeerID(1); p <= subscriberCount; p++ {
			h.HandleInboundShort(mpass.PlaneQM, frame.Short{
				Kind: frame.RegisterNotifier, SenderPID: int32(p), Payload: e.Pack(),
			})
		}

		h.NotifyEvent(mpass.PlaneQM, e)

		total := 0
		mu.Lock()
		for _, s := range senders {
			total += s.count()
		}
		mu.Unlock()
		Expect(total).To(Equal(subscriberCount))
	})
})

var _ = Describe("stop-token liveness", func() {
	It("lets an in-flight local fan-out dispatch finish promptly after stop is requested", func() {
		ctx, cancel := context.WithCancel(context.Background())
		senders := map[string]*fakeSender{}
		factory := func(endpoint string) (mpass.Sender, error) {
			s := &fakeSender{}
			senders[endpoint] = s
			return s, nil
		}
		cache := sendercache.New(factory, false, 10, time.Millisecond, context.Background())
		pool := workpool.New(ctx, 4)
		h := New(Config{LocalPID: 4444, Cache: cache, Pool: pool, StopCtx: ctx})

		e := testElement()
		var wg sync.WaitGroup
		wg.Add(1)
		_, err := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {
			wg.Done()
		}), 4444)
		Expect(err).NotTo(HaveOccurred())

		h.NotifyEvent(mpass.PlaneQM, e)
		cancel()

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		Eventually(done, 500*time.Millisecond).Should(BeClosed())
	})
})
