package auth

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("password stored in the clear")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword("wrong password", hash) {
		t.Fatalf("wrong password accepted")
	}
}
