package domain

// NodeConfig is supplied at startup and never changes afterwards.
type NodeConfig struct {
	DisplayName string
	ListenPort  int
}
