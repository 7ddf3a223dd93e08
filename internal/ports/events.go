package ports

// EventBus diffuse les changements d'état (lecture, lecteur, prière, jobs) vers SSE et MQTT.
// Publish ne bloque jamais; un abonné trop lent perd des événements.
type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}
