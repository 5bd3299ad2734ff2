package server

import (
	"container/list"
	"sync"

	"github.com/ajankovic-labs/smsc/internal/session"
)

// registry tracks every live session in insertion order so the outbound
// dispatcher can do a first-fit scan of eligible receivers.
type registry struct {
	mu   sync.Mutex
	order *list.List
	byID  map[string]*list.Element
}

func newRegistry() *registry {
	return &registry{order: list.New(), byID: make(map[string]*list.Element)}
}

func (r *registry) add(sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[sess.ID()]; exists {
		return
	}
	r.byID[sess.ID()] = r.order.PushBack(sess)
}

func (r *registry) remove(sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[sess.ID()]
	if !ok {
		return
	}
	r.order.Remove(e)
	delete(r.byID, sess.ID())
}

func (r *registry) get(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.Value.(*session.Session), true
}

// eligible returns the sessions able to receive a mobile-terminated
// message, in insertion order, for first-fit dispatch.
func (r *registry) eligible() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		sess := e.Value.(*session.Session)
		if sess.CanReceive() {
			out = append(out, sess)
		}
	}
	return out
}

// all returns every tracked session, bound or not, for shutdown broadcast.
func (r *registry) all() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*session.Session))
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
