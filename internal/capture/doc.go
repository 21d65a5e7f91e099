// Package capture adapts packet sources to the classifier.
//
// A Source reads raw packets from any gopacket.PacketDataSource, strips the
// radiotap header when present, derives the receive channel and frame
// category, and hands each frame to a callback. Pcap and pcapng files are
// opened with OpenFile; live monitor-mode capture lives in the live
// subpackage because it needs libpcap.
package capture
