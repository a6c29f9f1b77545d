// Package devicewatch announces newly attached block devices via udev
// netlink events, giving examiners a nudge that fresh evidence may need
// imaging into the spool. It observes only; acquisition stays manual.
package devicewatch
