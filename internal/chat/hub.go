package chat

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const persistTimeout = 5 * time.Second

// MessageArchiver persists routed envelopes for the history API. Archiving is
// best effort and happens off the routing path; the hub never reads it back.
type MessageArchiver interface {
	SaveDirect(ctx context.Context, msg *DirectMessage) error
	SaveGroup(ctx context.Context, msg *GroupMessage) error
}

// NotificationWriter records a durable notification when a direct message
// finds its recipient offline.
type NotificationWriter interface {
	MessageMissed(ctx context.Context, recipientID, senderID, text string) error
}

// Hub is the central router. It owns the connection registry, the room table
// and all routing decisions. All state lives behind its channels: Run is the
// only goroutine that touches the maps, so they need no locking.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan clientEvent

	// conns is every live transport, bound to a user or not.
	conns map[*Client]struct{}
	// sessions maps a user id to its single live handle.
	sessions map[string]*Client
	rooms    map[string]*room

	bus      Bus
	archive  MessageArchiver
	notifier NotificationWriter
	log      zerolog.Logger
}

type clientEvent struct {
	client *Client
	event  any
}

// Read-only queries travel through the same channel as client events so they
// observe a consistent snapshot without extra locking.
type presenceQuery struct {
	reply chan []string
}

type membersQuery struct {
	groupID string
	reply   chan []string
}

// room couples durable membership with the transient per-connection
// subscriptions that actually receive fan-out. A member who disconnects stays
// in members but drops out of subscribers until they rejoin.
type room struct {
	id          string
	members     map[string]struct{}
	subscribers map[string]*Client
}

func newRoom(id string) *room {
	return &room{
		id:          id,
		members:     make(map[string]struct{}),
		subscribers: make(map[string]*Client),
	}
}

// NewHub wires the router. archive and notifier may be nil when the service
// runs without a database.
func NewHub(bus Bus, archive MessageArchiver, notifier NotificationWriter, log zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan clientEvent),
		conns:      make(map[*Client]struct{}),
		sessions:   make(map[string]*Client),
		rooms:      make(map[string]*room),
		bus:        bus,
		archive:    archive,
		notifier:   notifier,
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled or the bus
// subscription closes.
func (h *Hub) Run(ctx context.Context) {
	inbound := h.bus.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.conns[client] = struct{}{}

		case client := <-h.unregister:
			h.dropClient(client, true)

		case ev := <-h.events:
			h.dispatch(ctx, ev)

		case payload, ok := <-inbound:
			if !ok {
				return
			}
			h.deliver(payload)
		}
	}
}

// dispatch handles one decoded client event. Decoding and validation already
// happened at the transport boundary.
func (h *Hub) dispatch(ctx context.Context, ev clientEvent) {
	// A transport can queue events and then get evicted before they are
	// handled. Acting on one would touch a closed handle, so drop it.
	if ev.client != nil {
		if _, ok := h.conns[ev.client]; !ok {
			h.log.Debug().Msg("dropping event from evicted transport")
			return
		}
	}

	switch e := ev.event.(type) {
	case *AddUser:
		h.bindUser(ev.client, e.UserID)

	case *DirectMessage:
		if h.sessions[e.ReceiverID] == nil && h.notifier != nil {
			msg := *e
			h.persist("notify", func(ctx context.Context) error {
				return h.notifier.MessageMissed(ctx, msg.ReceiverID, msg.SenderID, msg.Text)
			})
		}
		if h.archive != nil {
			msg := *e
			h.persist("archive direct", func(ctx context.Context) error {
				return h.archive.SaveDirect(ctx, &msg)
			})
		}
		h.publish(ctx, busFrame{Kind: busKindDirect, Direct: e})

	case *GroupMessage:
		if e.SenderName == "" {
			e.SenderName = defaultGroupName
		}
		if h.archive != nil {
			msg := *e
			h.persist("archive group", func(ctx context.Context) error {
				return h.archive.SaveGroup(ctx, &msg)
			})
		}
		h.publish(ctx, busFrame{Kind: busKindGroup, Group: e})

	case *joinGroup:
		h.joinRoom(ev.client, e.UserID, e.GroupID)

	case *leaveGroup:
		h.leaveRoom(e.UserID, e.GroupID)

	case *CreateGroup:
		h.createRoom(ev.client, e)

	case *presenceQuery:
		users := make([]string, 0, len(h.sessions))
		for id := range h.sessions {
			users = append(users, id)
		}
		sort.Strings(users)
		e.reply <- users

	case *membersQuery:
		var members []string
		if r := h.rooms[e.groupID]; r != nil {
			for id := range r.members {
				members = append(members, id)
			}
		}
		sort.Strings(members)
		e.reply <- members

	default:
		h.log.Error().Type("event", ev.event).Msg("unhandled event type")
	}
}

// bindUser makes client the live session for userID. A reconnect replaces the
// previous handle: the stale connection is closed and its room subscriptions
// die with it.
func (h *Hub) bindUser(client *Client, userID string) {
	if prev := client.userID; prev != "" && prev != userID && h.sessions[prev] == client {
		// Same connection re-identifying as someone else.
		delete(h.sessions, prev)
		h.dropSubscriptions(client)
	}

	if old := h.sessions[userID]; old != nil && old != client {
		h.dropSubscriptions(old)
		h.closeConn(old)
	}

	client.userID = userID
	client.connectedAt = time.Now()
	h.sessions[userID] = client
	h.log.Debug().Str("user", userID).Msg("session registered")
	h.announcePresence()
}

// dropClient handles a transport disconnect. The session and all of its room
// subscriptions are purged; room membership survives for a later reconnect.
func (h *Hub) dropClient(client *Client, announce bool) {
	if _, ok := h.conns[client]; !ok {
		return
	}
	h.closeConn(client)
	h.dropSubscriptions(client)

	userID := client.userID
	if userID == "" || h.sessions[userID] != client {
		// Never identified, or already replaced by a newer handle.
		return
	}
	delete(h.sessions, userID)
	h.log.Debug().Str("user", userID).Dur("session", time.Since(client.connectedAt)).Msg("session purged")
	if announce {
		h.announcePresence()
	}
}

func (h *Hub) closeConn(client *Client) {
	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	close(client.send)
}

// dropSubscriptions removes every room subscription held by the transport,
// whatever user id it was keyed under. A stale handle left in a subscriber
// map would receive sends after its channel closed.
func (h *Hub) dropSubscriptions(client *Client) {
	for _, r := range h.rooms {
		for id, c := range r.subscribers {
			if c == client {
				delete(r.subscribers, id)
			}
		}
	}
}

// announcePresence pushes the full online-user set to every live transport.
// Dead transports found along the way are evicted and the set is re-announced
// until it goes out cleanly.
func (h *Hub) announcePresence() {
	for {
		users := make([]string, 0, len(h.sessions))
		for id := range h.sessions {
			users = append(users, id)
		}
		sort.Strings(users)

		frame, err := EncodeFrame(EventGetUsers, users)
		if err != nil {
			h.log.Error().Err(err).Msg("encode presence")
			return
		}

		var dead []*Client
		for c := range h.conns {
			if !c.trySend(frame) {
				dead = append(dead, c)
			}
		}
		if len(dead) == 0 {
			return
		}
		for _, c := range dead {
			h.dropClient(c, false)
		}
	}
}

func (h *Hub) joinRoom(client *Client, userID, groupID string) {
	r := h.rooms[groupID]
	if r == nil {
		r = newRoom(groupID)
		h.rooms[groupID] = r
	}
	r.members[userID] = struct{}{}
	r.subscribers[userID] = client

	h.sendTo(client, EventGroupJoined, GroupJoined{UserID: userID, GroupID: groupID})
}

// leaveRoom is a full departure: both the live subscription and the durable
// membership go. Empty rooms are garbage collected.
func (h *Hub) leaveRoom(userID, groupID string) {
	r := h.rooms[groupID]
	if r == nil {
		return
	}
	delete(r.subscribers, userID)
	delete(r.members, userID)
	if len(r.members) == 0 {
		delete(h.rooms, groupID)
	}
}

// createRoom registers a new room with the creator as first member and
// subscriber. A duplicate id is a no-op on state, so re-creating an existing
// room never joins the caller to it, but the ack still goes out so a retrying
// client settles.
func (h *Hub) createRoom(client *Client, desc *CreateGroup) {
	if h.rooms[desc.ID] == nil {
		r := newRoom(desc.ID)
		h.rooms[desc.ID] = r
		if userID := client.userID; userID != "" {
			r.members[userID] = struct{}{}
			r.subscribers[userID] = client
		}
	}

	frame, err := EncodeFrame(EventGroupCreated, desc.Descriptor())
	if err != nil {
		h.log.Error().Err(err).Msg("encode groupCreated")
		return
	}
	if !client.trySend(frame) {
		h.dropClient(client, true)
	}
}

func (h *Hub) publish(ctx context.Context, frame busFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("encode bus frame")
		return
	}
	if err := h.bus.Publish(ctx, payload); err != nil {
		h.log.Error().Err(err).Str("kind", frame.Kind).Msg("bus publish failed")
	}
}

// deliver routes one bus frame to local recipients. Misses (offline
// recipient, unknown room) are normal outcomes, not errors.
func (h *Hub) deliver(payload []byte) {
	var frame busFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		h.log.Warn().Err(err).Msg("malformed bus frame")
		return
	}

	switch frame.Kind {
	case busKindDirect:
		if frame.Direct == nil {
			return
		}
		client := h.sessions[frame.Direct.ReceiverID]
		if client == nil {
			return
		}
		h.sendTo(client, EventGetMessage, DirectDelivery{
			SenderID: frame.Direct.SenderID,
			Text:     frame.Direct.Text,
			FileURL:  frame.Direct.FileURL,
		})

	case busKindGroup:
		if frame.Group == nil {
			return
		}
		h.fanOut(frame.Group)

	default:
		h.log.Warn().Str("kind", frame.Kind).Msg("unknown bus frame kind")
	}
}

// fanOut delivers a group message to every live subscriber of the room except
// the sender. One dead subscriber never blocks the rest.
func (h *Hub) fanOut(msg *GroupMessage) {
	r := h.rooms[msg.GroupID]
	if r == nil {
		return
	}

	frame, err := EncodeFrame(EventGetGroupMessage, msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode getGroupMessage")
		return
	}

	// Snapshot before sending: eviction below mutates the subscriber map.
	targets := make([]*Client, 0, len(r.subscribers))
	for userID, c := range r.subscribers {
		if userID == msg.SenderID {
			continue
		}
		targets = append(targets, c)
	}

	var dead []*Client
	for _, c := range targets {
		if !c.trySend(frame) {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.dropClient(c, false)
	}
	if len(dead) > 0 {
		h.announcePresence()
	}
}

func (h *Hub) sendTo(client *Client, event string, data any) {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encode frame")
		return
	}
	if !client.trySend(frame) {
		h.dropClient(client, true)
	}
}

// OnlineUsers returns the sorted set of user ids with a live session.
func (h *Hub) OnlineUsers(ctx context.Context) []string {
	q := &presenceQuery{reply: make(chan []string, 1)}
	select {
	case h.events <- clientEvent{event: q}:
	case <-ctx.Done():
		return nil
	}
	select {
	case users := <-q.reply:
		return users
	case <-ctx.Done():
		return nil
	}
}

// Members returns the sorted durable membership of a room, nil if the room
// does not exist.
func (h *Hub) Members(ctx context.Context, groupID string) []string {
	q := &membersQuery{groupID: groupID, reply: make(chan []string, 1)}
	select {
	case h.events <- clientEvent{event: q}:
	case <-ctx.Done():
		return nil
	}
	select {
	case members := <-q.reply:
		return members
	case <-ctx.Done():
		return nil
	}
}

// persist runs a store write off the routing path with its own deadline.
func (h *Hub) persist(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			h.log.Error().Err(err).Str("op", what).Msg("persist failed")
		}
	}()
}
