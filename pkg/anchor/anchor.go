package anchor

import (
	"crypto/sha256"
	"fmt"
)

func GetDiscriminator(namespace string, name string) []byte {
	preimage := fmt.Sprintf("%s:%s", namespace, name)
	hash := sha256.Sum256([]byte(preimage))
	return hash[:8]
}

// InstructionDiscriminator is the 8-byte prefix of an Anchor instruction's data.
func InstructionDiscriminator(name string) []byte {
	return GetDiscriminator("global", name)
}

// AccountDiscriminator is the 8-byte prefix of an Anchor account's data.
func AccountDiscriminator(name string) []byte {
	return GetDiscriminator("account", name)
}
