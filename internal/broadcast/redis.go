package broadcast

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/NikitaUstnov/whiteboard-server/internal/models"
	"github.com/NikitaUstnov/whiteboard-server/internal/session"
	"github.com/NikitaUstnov/whiteboard-server/internal/utils"
)

// envelope is the wire format published on the broadcast channel.
type envelope struct {
	InstanceID string       `json:"instanceId"`
	RoomID     string       `json:"roomId"`
	ExcludeID  string       `json:"excludeId,omitempty"`
	Frame      models.Frame `json:"frame"`
}

// Redis bridges room fan-out across worker processes through a pub/sub
// channel. Frames are delivered to the local hub immediately and published
// for every other instance; the subscriber skips envelopes carrying this
// instance's own id.
type Redis struct {
	hub        *session.Hub
	rdb        *redis.Client
	channel    string
	instanceID string
	log        *utils.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedis(hub *session.Hub, rdb *redis.Client, channel string, log *utils.Logger) *Redis {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Redis{
		hub:        hub,
		rdb:        rdb,
		channel:    channel,
		instanceID: uuid.New().String(),
		log:        log,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go b.subscribe(ctx)
	return b
}

func (b *Redis) InstanceID() string { return b.instanceID }

func (b *Redis) ToRoom(roomID string, frame models.Frame) {
	b.hub.Broadcast(roomID, "", frame)
	b.publish(roomID, "", frame)
}

func (b *Redis) ToRoomExcept(roomID, senderID string, frame models.Frame) {
	b.hub.Broadcast(roomID, senderID, frame)
	b.publish(roomID, senderID, frame)
}

func (b *Redis) publish(roomID, excludeID string, frame models.Frame) {
	data, err := json.Marshal(envelope{
		InstanceID: b.instanceID,
		RoomID:     roomID,
		ExcludeID:  excludeID,
		Frame:      frame,
	})
	if err != nil {
		b.log.Error("marshal broadcast envelope", "roomId", roomID, "err", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), b.channel, data).Err(); err != nil {
		b.log.Error("publish broadcast", "roomId", roomID, "err", err)
	}
}

// subscribe applies envelopes from other instances to the local hub.
func (b *Redis) subscribe(ctx context.Context) {
	defer close(b.done)

	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	b.log.Info("subscribed to broadcast channel", "channel", b.channel, "instanceId", b.instanceID)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("drop malformed broadcast envelope", "err", err)
				continue
			}
			if env.InstanceID == b.instanceID {
				continue // already delivered locally on publish
			}
			b.hub.Broadcast(env.RoomID, env.ExcludeID, env.Frame)
		}
	}
}

func (b *Redis) Close() error {
	b.cancel()
	<-b.done
	return nil
}
