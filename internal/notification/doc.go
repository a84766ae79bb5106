// Package notification implements the store-and-forward delivery queue for
// devices that are not permanently connected.
//
// Producers enqueue messages with Service.Send. A device pulls its messages
// with Service.ClaimPending, which returns every pending message for the
// device oldest first and marks them delivered in the same transaction, so
// each message is handed out exactly once even when polls race. Producers
// confirm the outcome with Service.Status. The Reaper deletes messages whose
// status-specific TTL has elapsed.
//
// # Lifecycle
//
//	        Send
//	[none] ------> pending --ClaimPending--> delivered --Purge(deliveredTTL)--> [deleted]
//	                  |
//	                  +-------------Purge(pendingTTL)----------------------------> [deleted]
//
// The database is the only shared state: nothing about a message is cached
// in memory, so several service instances may share one store.
//
// # Usage
//
//	repo := notification.NewSQLiteRepository(db.DB)
//	svc := notification.NewService(notification.ServiceConfig{
//	    Repository: repo,
//	    Resolver:   registry,
//	    Policy:     notification.NewAllowList(cfg.Notifications.EnabledTypes),
//	})
//	id, err := svc.Send(ctx, "A-17", "firmware", `{"version":"2.1"}`)
//	msgs, err := svc.ClaimPending(ctx, "1001")
//
//	reaper := notification.NewReaper(notification.ReaperConfig{
//	    Purger:       svc,
//	    PendingTTL:   cfg.Notifications.PendingTTL,
//	    DeliveredTTL: cfg.Notifications.DeliveredTTL,
//	    Interval:     cfg.Notifications.PurgeInterval,
//	})
//	reaper.Start(ctx)
//	defer reaper.Stop()
package notification
