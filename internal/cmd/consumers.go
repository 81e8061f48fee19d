package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Murega14/agrilink/internal/services"

	"github.com/streadway/amqp"
)

// handleNotification logs the e-mail a delivery worker would send.
func handleNotification(msg amqp.Delivery) error {
	var n services.Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		return fmt.Errorf("failed to decode notification: %w", err)
	}
	if n.To == "" {
		return fmt.Errorf("notification %d has no recipient", msg.DeliveryTag)
	}
	log.Printf("Sending %q to %s", n.Subject, n.To)
	return nil
}

// handleOrderEvent logs order lifecycle events per farmer.
func handleOrderEvent(msg amqp.Delivery) error {
	var event services.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("failed to decode order event: %w", err)
	}
	switch event.Type {
	case services.EventOrderCreated, services.EventOrderCanceled:
	default:
		return fmt.Errorf("unknown order event type %q", event.Type)
	}

	log.Printf("Order %s %s, total %s", event.OrderID, event.Type, event.TotalAmount.StringFixed(2))
	for _, fo := range event.FarmerOrders {
		log.Printf("  farmer %s: %s", fo.FarmerID, fo.SubtotalAmount.StringFixed(2))
	}
	return nil
}
