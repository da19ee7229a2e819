package notifhandler

import (
	"github.com/qorix-group/lola-messaging/cmn/cos"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// localFanout implements spec §4.6.4. It is always run on h.pool, never on
// the caller's thread, since local callbacks are user code of unbounded
// duration. handlers is snapshotted exactly once here; reportRacy, if
// true, logs spec §4.6.6's "possibly-racy notify" note once dispatch
// completes and zero handlers actually fired (a weak upgrade can still
// fail after the snapshot, so "zero invoked" is checked post-dispatch, not
// against the raw registered count).
func (h *Handler) localFanout(cb *controlBlock, elementID frame.ElementID, reportRacy bool) {
	handlers, total := cb.snapshotLocalHandlers(elementID)
	if total > maxLocalHandlers {
		nlog.Errorf("notifhandler: element %x has %d local handlers, only the first %d will be invoked", elementID.Pack(), total, maxLocalHandlers)
	}
	if len(handlers) == 0 {
		if reportRacy {
			nlog.Infof("notifhandler: NotifyUpdate for element %x invoked zero local handlers (possibly racy)", elementID.Pack())
		}
		return
	}

	h.pool.Submit(func() {
		invoked := 0
		for _, weak := range handlers {
			select {
			case <-h.stopCtx.Done():
				return
			default:
			}
			strong, ok := weak()
			if !ok {
				continue
			}
			strong()
			invoked++
		}
		if reportRacy && invoked == 0 {
			nlog.Infof("notifhandler: NotifyUpdate for element %x invoked zero local handlers (possibly racy)", elementID.Pack())
		}
	})
}

// remoteFanout implements spec §4.6.5: batched, bounded-lock-holding
// delivery of NotifyUpdate to every remote subscriber of elementID. Runs
// synchronously on the caller's thread (spec §4.6.1: "remote fan-out
// happens first, synchronously, so propagation latency is deterministic").
func (h *Handler) remoteFanout(cb *controlBlock, plane mpass.Plane, elementID frame.ElementID) {
	f := frame.Short{
		Kind:      frame.NotifyUpdate,
		SenderPID: int32(h.localPID),
		Payload:   elementID.Pack(),
	}

	startPID := mpass.PeerID(0)
	rounds := 0
	for rounds < maxFanoutRounds {
		batch, more := cb.snapshotSubscribersBatch(elementID, startPID)
		if len(batch) == 0 {
			break
		}
		rounds++

		var errs cos.Errs
		for _, peerID := range batch {
			sender := h.cache.GetOrCreate(plane, peerID)
			if err := h.send(sender, &f); err != nil {
				errs.Add(err)
			}
		}
		if n, err := errs.JoinErr(); n > 0 {
			nlog.Warningf("notifhandler: remote fan-out for element %x hit %d distinct send error(s): %v", elementID.Pack(), n, err)
		}

		if !more {
			break
		}
		startPID = batch[len(batch)-1] + 1
	}

	if rounds > 1 {
		nlog.Warningf("notifhandler: remote fan-out for element %x needed %d batches; consider the subscriber count", elementID.Pack(), rounds)
	}
}
