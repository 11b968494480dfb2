// Package mount produces snapshots of the rclone mount. A snapshot is
// either a healthy listing or explicitly Unknown; the distinction is what
// keeps mount outages from being misread as deleted content.
package mount
