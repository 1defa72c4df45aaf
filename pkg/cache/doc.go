// Package cache caches dependency closures keyed by version.
//
// Closures only change when the includes graph does, so every includes
// mutation invalidates the whole cache. MemoryCache purges its LRU;
// RedisCache bumps a generation counter that is part of every key, which
// invalidates all instances sharing the Redis database at once.
//
// Writers of a closure pass the generation they read before loading the
// graph, so a closure computed while an invalidation happened is never served.
package cache
