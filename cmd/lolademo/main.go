// Command lolademo wires up two messaging.Facade instances over a shared
// in-memory loopback transport and exercises a single register/notify
// round trip end to end, to show the whole stack running together.
//
// Grounded on the teacher's cmd/xmeta/xmeta.go: flat flag.*Var registration
// into a package-level flags struct, a const usage message, no subcommand
// framework.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/messaging"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/mpass/looptrans"
	"github.com/qorix-group/lola-messaging/notifhandler"
)

const helpMsg = `lolademo: demonstrates the messaging core end to end over an
in-memory loopback transport.

Usage:
  lolademo [flags]

Flags:
`

var flags struct {
	consumerPID int
	providerPID int
	asilb       bool
}

func init() {
	flag.IntVar(&flags.consumerPID, "consumer-pid", 4444, "local pid of the demo consumer process")
	flag.IntVar(&flags.providerPID, "provider-pid", 5555, "local pid of the demo provider process")
	flag.BoolVar(&flags.asilb, "asil-b", false, "also exercise the ASIL-B plane")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpMsg)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	hub := looptrans.NewHub()
	consumer := newFacade(hub, mpass.PeerID(flags.consumerPID), flags.asilb)
	defer consumer.Close()
	provider := newFacade(hub, mpass.PeerID(flags.providerPID), flags.asilb)
	defer provider.Close()

	e := frame.ElementID{ServiceID: 1, ElementID: 1, InstanceID: 1, ElementKind: 1}

	received := make(chan struct{}, 1)
	var scope notifhandler.Scope
	defer scope.Close()
	_, err := consumer.RegisterEventNotification(mpass.PlaneQM, e, scope.Weak(func() {
		received <- struct{}{}
	}), mpass.PeerID(flags.providerPID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
		os.Exit(1)
	}

	time.Sleep(50 * time.Millisecond)
	provider.NotifyEvent(mpass.PlaneQM, e)

	select {
	case <-received:
		fmt.Println("notification delivered")
	case <-time.After(2 * time.Second):
		fmt.Fprintln(os.Stderr, "timed out waiting for notification")
		os.Exit(1)
	}

	stats, err := consumer.DumpStats()
	if err == nil {
		fmt.Println("consumer stats:", stats)
	}
}

func newFacade(hub *looptrans.Hub, localPID mpass.PeerID, asilb bool) *messaging.Facade {
	cfg := messaging.DefaultConfig()
	cfg.LocalPID = localPID
	cfg.ASILBCapable = asilb

	senderFactory := func(endpoint string) (mpass.Sender, error) {
		return looptrans.NewSender(hub, endpoint, localPID, uint32(localPID), cfg.SenderQueueSize), nil
	}
	receiverFactory := func(endpoint string, queueSize int, allowlist mpass.Allowlist) mpass.Receiver {
		return looptrans.NewReceiver(hub, endpoint, queueSize, 2, allowlist)
	}
	return messaging.New(cfg, senderFactory, receiverFactory)
}
