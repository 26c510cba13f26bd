// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// lockSlots is the size of the baton ring. Contenders beyond this many
// distinct threads serialize on shared slots via the CAS.
const lockSlots = 16

// scalableLock protects very short critical sections (list splices) with
// minimal cache-line bouncing under contention.
//
// A ring of cache-line-padded slots holds a single baton: exactly one slot
// has baton == 1 at any instant. Each acquirer claims the next slot index
// in rotation and spins on that slot alone, so contenders never hammer a
// shared word. Release hands the baton to the following slot in ring
// order, not back to the acquirer's own slot; releasing to self would give
// the holder an unfair re-acquire advantage and starve the ring.
type scalableLock struct {
	_    pad
	next atomix.Uint64 // rotating slot assignment (FAA)
	_    pad
	slots [lockSlots]lockSlot
}

type lockSlot struct {
	baton    atomix.Uint64 // 1 while this slot holds the baton
	acquires atomix.Uint64 // times this slot admitted an acquirer
	_        pad
}

// init places the baton on slot 0 so the first acquirer enters directly.
func (l *scalableLock) init() {
	l.slots[0].baton.StoreRelaxed(1)
}

// acquire claims the baton and returns the slot ticket for release.
// The lock cannot fail; it only delays.
func (l *scalableLock) acquire() int {
	slot := int((l.next.AddAcqRel(1) - 1) % lockSlots)
	sw := spin.Wait{}
	for !l.slots[slot].baton.CompareAndSwapAcqRel(1, 0) {
		sw.Once()
	}
	l.slots[slot].acquires.AddAcqRel(1)
	return slot
}

// release passes the baton to the next slot in ring order.
func (l *scalableLock) release(slot int) {
	l.slots[(slot+1)%lockSlots].baton.StoreRelease(1)
}
