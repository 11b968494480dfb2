// Package notifications sends optional push notifications through ntfy for
// mount outages, missing or removed items, and review-needed descriptors.
package notifications
