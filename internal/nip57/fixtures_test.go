package nip57

// A real zap request and the bolt11 invoice that commits to it: the
// invoice's description-hash field is the sha256 of fixtureZapRequest.
const (
	fixtureZapRequest = `{"content":"","created_at":1678734288,"id":"c93b75ff70b07d28287059d750756f93281ac779cd780e7d61b781f9862c5a81","kind":9734,"pubkey":"04918dfc36c93e7db6cc0d60f37e1522f1c36b64d3f4b424c532d7c595febbc5","sig":"512d0a3ec6b9797810272b9dc05cadb7f6d271ff72a183350f643fa761bc37820e877563ddc1c5ef30a549a63115a6e907412a60de1dbe35dd7ea3b431a534ba","tags":[["e","d07f03815931a3767ea91ee9cb3920758cd6dcb4e206ef0f1061f7e3c51f338e"],["p","00003687cecf074d81949ce8b95a860789e2be03925f3d3860ae27573fdc2218"],["relays","wss://nostr.wine","wss://relay.damus.io","wss://relay.orangepill.dev","wss://dublin.saoirse.dev","wss://relay.utxo.one","wss://relay.nostr.band","wss://nostr-pub.wellorder.net","wss://nostr.milou.lol","wss://nostr.oxtr.dev","wss://eden.nostr.land","wss://mutinywallet.com","wss://nostr.zebedee.cloud","wss://brb.io"],["amount","50000"]]}`

	fixtureBolt11 = "lnbc500n1pjq7u7jsp5n5jth3w6d4wjnjmup0nwlr2xfqthg8leru8yj8cyqf3sszapfxeqpp5s0e5c4js9qem9rwxfvuza7zx9sh4akcecsnl64zk634lchp4j99shp5ctnx2g7vddpve39pa35f70d4yua7fypfqjepcygq938ev86ekd7sxqyjw5qcqpjrzjqvhxqvs0ulx0mf5gp6x2vw047capck4pxqnsjv0gg8a4zaegej6gxzlgzuqqttgqqyqqqqqqqqqqqqqqyg9qyysgqs80g00rantwaay8g6wwev33v7xgtu8qkmq4hflgs93ygrxccry6qlhksdd0497pusvlsx3emk0hj5ghecxf6pw84tgxf99r5jg7mjrgpammhml"

	fixtureDescHash = "c2e66523cc6b42ccc4a1ec689f3db5273be4902904b21c11002c4f961f59b37d"

	fixtureRecipient = "00003687cecf074d81949ce8b95a860789e2be03925f3d3860ae27573fdc2218"
	fixtureZappedEvt = "d07f03815931a3767ea91ee9cb3920758cd6dcb4e206ef0f1061f7e3c51f338e"

	// operator signing key used across receipt tests
	fixtureOperatorKey = "505fd02741816952ec9a70204221acdd8458906d3e1e0604fef033876c811a8f"
)
