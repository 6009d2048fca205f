package bus

import "testing"

func TestTopic_PublishInRegistrationOrder(t *testing.T) {
	topic := NewTopic("test")
	var order []int
	topic.Subscribe(func(topic, payload string) { order = append(order, 1) })
	topic.Subscribe(func(topic, payload string) { order = append(order, 2) })
	topic.Subscribe(func(topic, payload string) { order = append(order, 3) })

	topic.Publish("test", "1")

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestTopic_PublishPassesTopicAndPayload(t *testing.T) {
	topic := NewTopic("test")
	var gotTopic, gotPayload string
	topic.Subscribe(func(topic, payload string) {
		gotTopic = topic
		gotPayload = payload
	})

	topic.Publish("frischen/etal/trackside/w1", "1")

	if gotTopic != "frischen/etal/trackside/w1" {
		t.Errorf("topic = %q", gotTopic)
	}
	if gotPayload != "1" {
		t.Errorf("payload = %q", gotPayload)
	}
}

func TestTopic_NoSubscribersIsNoop(t *testing.T) {
	topic := NewTopic("test")
	topic.Publish("test", "1") // must not panic
}

func TestUpdateTopic_PublishInRegistrationOrder(t *testing.T) {
	topic := NewUpdateTopic("test")
	var order []int
	topic.Subscribe(func(value string) { order = append(order, 1) })
	topic.Subscribe(func(value string) { order = append(order, 2) })

	topic.Publish("0")

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("got %v", order)
	}
}

func TestUpdateTopic_PublishPassesValue(t *testing.T) {
	topic := NewUpdateTopic("test")
	var got string
	topic.Subscribe(func(value string) { got = value })

	topic.Publish("1,0")

	if got != "1,0" {
		t.Errorf("value = %q", got)
	}
}
