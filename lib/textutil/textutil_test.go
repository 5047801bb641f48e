package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "basicsofmathematicalsoftware", NormalizeName("  Basics of\tMathematical Software\n"))
	require.Equal(t, "", NormalizeName(" \n "))
	require.True(t, SameName("Operating Systems", "operating  systems"))
	require.False(t, SameName("Operating Systems", "Operating System"))
}
