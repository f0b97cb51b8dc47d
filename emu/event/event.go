/*
 * ES40 - Event scheduler
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package event

import "sync"

type Callback = func(iarg int)

type Event struct {
	time int      // Number of cycles to event, relative to previous event
	cb   Callback // Function to callback
	iarg int      // Integer argument
	prev *Event
	next *Event
}

// List is a delta list of pending events. Each owner (a CPU's interrupt
// pins, a device) keeps its own list and advances it from its own clock.
// Events may be added from other goroutines.
type List struct {
	mu   sync.Mutex
	head *Event
	tail *Event
}

// Add an event to fire after time cycles. Time of 0 fires at once.
func (el *List) Add(cb Callback, time int, iarg int) {
	// If time is 0 process event immediately
	if time <= 0 {
		cb(iarg)
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	ev := &Event{cb: cb, time: time, iarg: iarg}

	evptr := el.head
	// If empty put on head
	if evptr == nil {
		el.head = ev
		el.tail = ev
		return
	}

	// Scan for place to install it
	for evptr != nil {
		if ev.time < evptr.time {
			// Remove current time from next time
			evptr.time -= ev.time
			ev.prev = evptr.prev
			ev.next = evptr
			evptr.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				el.head = ev
			}
			return
		}
		// Make new event relative to this one
		ev.time -= evptr.time
		evptr = evptr.next
	}

	// Get here, put it on tail of list
	ev.prev = el.tail
	el.tail.next = ev
	el.tail = ev
}

// Cancel first event with argument iarg. Returns true if one was removed.
func (el *List) Cancel(iarg int) bool {
	el.mu.Lock()
	defer el.mu.Unlock()

	for evptr := el.head; evptr != nil; evptr = evptr.next {
		if evptr.iarg != iarg {
			continue
		}
		nxt := evptr.next
		if nxt != nil {
			// Give time to next event
			nxt.time += evptr.time
			nxt.prev = evptr.prev
		} else {
			el.tail = evptr.prev
		}

		if evptr.prev != nil {
			evptr.prev.next = nxt
		} else {
			el.head = nxt
		}
		return true
	}
	return false
}

// Check if any events are waiting.
func (el *List) Any() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.head != nil
}

// Advance time by t cycles, firing every event that comes due. Callbacks
// run without the list locked, so they may schedule new events.
func (el *List) Advance(t int) {
	el.mu.Lock()
	if el.head == nil {
		el.mu.Unlock()
		return
	}
	el.head.time -= t
	for {
		evptr := el.head
		if evptr == nil || evptr.time > 0 {
			el.mu.Unlock()
			return
		}
		el.head = evptr.next
		if el.head != nil {
			el.head.prev = nil
			// Carry overshoot to the next event.
			el.head.time += evptr.time
		} else {
			el.tail = nil
		}
		el.mu.Unlock()
		evptr.cb(evptr.iarg)
		el.mu.Lock()
	}
}
