// Package services defines the collaborators of the sync engine and implements them against
// real platforms.
//
// # Interfaces
//
//   - [Catalog] lists playlists and tracks. [SpotifyService] implements it with the Spotify Web API.
//   - [Resolver] turns a track label into at most one media match. [YouTubeResolver] implements it
//     with the YouTube Data API search endpoint.
//   - [Fetcher] writes a match to disk. [StreamFetcher] streams directly with kkdai/youtube and
//     [YTDLPFetcher] shells out to yt-dlp.
//   - [Tagger] writes metadata into a fetched file. [ID3Tagger] writes ID3v2 frames into mp3 output.
//
// # Spotify
//
// [SpotifyService] authenticates with the OAuth2 client credentials grant. No user login is
// involved, so only public playlists are visible. Requests are paced with a token bucket and
// paginated by following the "next" link until it is null.
//
// # Error Handling
//
// Adapters wrap the sentinels from the shared package:
//   - [shared.ErrCatalog] : playlist or track listing failed
//   - [shared.ErrSearch] : the search request failed
//   - [shared.ErrFetch] : streaming or writing the media file failed
package services
