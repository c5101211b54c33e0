package redis

import "fmt"

const ns = "communa:v1"

func KeyEventSummary(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventTiers(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:tiers", ns, eventID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemOrder(eventID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:orders:%d:%s", ns, eventID, idemKey)
}

func ChannelPricingChanged() string {
	return ns + ":pricing:changed"
}
