package store

import (
	"io/ioutil"
	"os"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/duststorm/src/common"
)

func testStore(t *testing.T, s Store) {
	for _, v := range []int32{42, 7, -3, 42} {
		if _, err := s.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	isNew, err := s.Add(7)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Fatalf("7 should not be new")
	}

	isNew, err = s.Add(8)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Fatalf("8 should be new")
	}

	if !s.Contains(-3) || s.Contains(5) {
		t.Fatalf("Contains is wrong")
	}

	if s.Len() != 4 {
		t.Fatalf("Len should be 4, not %d", s.Len())
	}

	expected := []int32{-3, 7, 8, 42}
	if v := s.Values(); !reflect.DeepEqual(v, expected) {
		t.Fatalf("Values should be %v, not %v", expected, v)
	}
}

func TestInmemStore(t *testing.T) {
	s := NewInmemStore()
	defer s.Close()

	if v := s.Values(); len(v) != 0 {
		t.Fatalf("new store should be empty")
	}

	testStore(t, s)
}

func badgerDir(t *testing.T) string {
	os.Mkdir("test_data", os.ModeDir|0777)
	dir, err := ioutil.TempDir("test_data", "badger")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestBadgerStore(t *testing.T) {
	dir := badgerDir(t)
	defer os.RemoveAll(dir)

	s, err := NewBadgerStore(dir, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}

	testStore(t, s)

	v, err := s.dbGetValue(42)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("stored value should be 42, not %d", v)
	}

	if _, err := s.dbGetValue(1000); !IsStore(err, KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	// A record written behind the cache is still found.
	if err := s.dbSetValue(77); err != nil {
		t.Fatal(err)
	}
	if !s.Contains(77) {
		t.Fatalf("Contains should fall back to the database")
	}
	if s.Contains(1000) {
		t.Fatalf("1000 was never stored")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Add(99); !IsStore(err, Closed) {
		t.Fatalf("Add after Close should fail with Closed, got %v", err)
	}
}

func TestBadgerStoreReload(t *testing.T) {
	dir := badgerDir(t)
	defer os.RemoveAll(dir)

	s, err := NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int32{3, 1, 2} {
		if _, err := s.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	expected := []int32{1, 2, 3}
	if v := s.Values(); !reflect.DeepEqual(v, expected) {
		t.Fatalf("reloaded values should be %v, not %v", expected, v)
	}

	isNew, err := s.Add(2)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Fatalf("reloaded value 2 should not be new")
	}
}
