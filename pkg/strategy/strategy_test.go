package strategy

import (
	"testing"

	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestRouteForwardsToChosenFace(t *testing.T) {
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	var s Strategy = BestRoute{}
	faces := s.AfterLookup(name, defn.FaceID(4), defn.FaceID(1))
	assert.Equal(t, []defn.FaceID{4}, faces)
}

func TestBestRouteNoRouteYieldsNoFaces(t *testing.T) {
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	var s Strategy = BestRoute{}
	faces := s.AfterLookup(name, defn.InvalidFaceID, defn.FaceID(1))
	assert.Empty(t, faces)
}
