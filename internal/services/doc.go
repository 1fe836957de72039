// Package services implements the provider adapter contract, the capability-filtered provider [Registry]
// and the MusicBrainz [ReleaseRegistry].
//
// # Capabilities
//
// Every adapter implements [Provider] and declares a [CapabilitySet]. Each [Capability] is backed by one
// interface ([ArtistFetcher], [ArtistAlbumsFetcher], [AlbumFetcher], [UPCLookup], [URLCodec], ...).
// [Registry.Register] rejects an adapter that declares a capability without implementing its interface,
// so consumers can assert the interface after a successful [Registry.Resolve].
//
// # Adapters
//
//   - [SpotifyService] : Spotify Web API, client credentials OAuth2, full capability set
//   - [DeezerService] : public Deezer API, full capability set
//   - [TidalService] : TIDAL catalog API, client credentials OAuth2, no artist search or ISRC lookup
//   - [MusicBrainzService] : release registry, one request per second
//
// # Transport
//
// Adapters share an unexported HTTP client that applies a [rate.Limiter], attaches the adapter's bearer
// token from its own [TokenSource], and classifies failures into [shared.ProviderError]:
//   - transport failures, 429 and 5xx are retryable
//   - 404 matches [shared.ErrNotFound], 429 matches [shared.ErrRateLimited]
//   - a 401 invalidates the token and the request is repeated once
//
// Raw response bodies are memoized through the cache package under the adapter namespace. Canonical
// objects are rebuilt from the cached body on every call.
package services
