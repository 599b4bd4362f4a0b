/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "10.0.0.1", want: "10.0.0.1"},
		{in: "192.168.100.254", want: "192.168.100.254"},
		{in: "", wantErr: true},
		{in: "host.local", wantErr: true},
		{in: "::1", wantErr: true},
		{in: "10.0.0.256", wantErr: true},
		{in: "10.0.0", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeAddress(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRegistryAddForwardsToSinkOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sink := NewMockEndpointSink(ctrl)

	sink.EXPECT().
		AddEndpoint(gomock.Any()).
		DoAndReturn(func(e *models.Endpoint) *models.Endpoint { return e }).
		Times(1)

	reg := NewRegistry(sink, logger.NewTestLogger())

	first, err := reg.Add("10.0.0.1")
	require.NoError(t, err)

	second, err := reg.Add("10.0.0.1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryKeepsSinkEndpoint(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sink := NewMockEndpointSink(ctrl)
	existing := models.NewEndpoint("10.0.0.9")

	sink.EXPECT().AddEndpoint(gomock.Any()).Return(existing)

	reg := NewRegistry(sink, logger.NewTestLogger())

	got, err := reg.Add("10.0.0.9")
	require.NoError(t, err)
	assert.Same(t, existing, got)

	found, ok := reg.Get("10.0.0.9")
	require.True(t, ok)
	assert.Same(t, existing, found)
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sink := NewMockEndpointSink(ctrl)

	sink.EXPECT().AddEndpoint(gomock.Any()).DoAndReturn(func(e *models.Endpoint) *models.Endpoint { return e })
	sink.EXPECT().RemoveEndpoint("10.0.0.2").Return(true).Times(1)

	reg := NewRegistry(sink, logger.NewTestLogger())

	_, err := reg.Add("10.0.0.2")
	require.NoError(t, err)

	removed, err := reg.Remove("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = reg.Remove("10.0.0.2")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = reg.Remove("not-an-ip")
	require.ErrorIs(t, err, ErrInvalidAddress)

	assert.Empty(t, reg.List())
}

func TestRegistryRejectsInvalidWithoutTouchingSink(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sink := NewMockEndpointSink(ctrl)

	reg := NewRegistry(sink, logger.NewTestLogger())

	_, err := reg.Add("300.1.1.1")
	require.ErrorIs(t, err, ErrInvalidAddress)
	assert.Zero(t, reg.Len())
}

func TestRegistryListSortsNumerically(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil, logger.NewTestLogger())

	err := reg.Seed([]string{"10.0.0.10", "10.0.0.2", "9.255.0.1", "bogus", "10.0.0.2"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	assert.Equal(t, []string{"9.255.0.1", "10.0.0.2", "10.0.0.10"}, reg.List())
}
