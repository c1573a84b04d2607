// Package store implements the persistence of broadcast values.
//
// InmemStore keeps the values in a map and forgets them when the process ends.
// BadgerStore writes every new value to a Badger database as well, and loads
// the existing values back when it is opened on a non-empty directory, so a
// restarted node resumes with what it knew.
package store
