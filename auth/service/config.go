package service

// Config is the part of the auth settings the service acts on. The root
// account is created by Bootstrap when both RootEmail and RootPassword are
// set.
type Config struct {
	RootUsername string
	RootEmail    string
	RootPassword string
}
