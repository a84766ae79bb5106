package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the notify service uses.
//
//	graylogic/notify/poll/{target}       device -> service: claim request
//	graylogic/notify/delivery/{target}   service -> device: claimed messages
//	graylogic/notify/pending/{device_id} service -> device: doorbell
//	graylogic/notify/status              service online/offline (retained)
const TopicPrefix = "graylogic/notify"

// Topics provides builders for notify MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Delivery("1001") // "graylogic/notify/delivery/1001"
type Topics struct{}

// Poll returns the topic a device publishes to when it wants its messages.
func (Topics) Poll(target string) string {
	return fmt.Sprintf("%s/poll/%s", TopicPrefix, target)
}

// AllPolls returns the wildcard subscription for every device poll.
func (Topics) AllPolls() string {
	return TopicPrefix + "/poll/+"
}

// Delivery returns the topic claimed messages are published to. The target
// is echoed exactly as the device sent it, so a device polling by a legacy
// number receives on the topic it subscribed to.
func (Topics) Delivery(target string) string {
	return fmt.Sprintf("%s/delivery/%s", TopicPrefix, target)
}

// Pending returns the doorbell topic for a canonical device ID.
func (Topics) Pending(deviceID string) string {
	return fmt.Sprintf("%s/pending/%s", TopicPrefix, deviceID)
}

// Status returns the retained service status topic.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// PollTarget extracts the device identifier from a poll topic.
// It returns false if topic is not a poll topic.
func (Topics) PollTarget(topic string) (string, bool) {
	target, ok := strings.CutPrefix(topic, TopicPrefix+"/poll/")
	if !ok || ValidateSegment(target) != nil {
		return "", false
	}
	return target, true
}

// ValidateSegment reports whether s can be used as a single topic level.
func ValidateSegment(s string) error {
	if s == "" || strings.ContainsAny(s, "/+#") {
		return fmt.Errorf("%w: segment %q", ErrInvalidTopic, s)
	}
	return nil
}
